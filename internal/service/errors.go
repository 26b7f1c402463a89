package service

import (
	"github.com/dukerupert/bidwell/internal/domain"
)

// Milestone plan input errors - use domain.EINVALID
var (
	ErrStageAmountAndPercent = domain.Errorf(domain.EINVALID, "", "A stage needs exactly one of percentage or amount")
	ErrStageDescription      = domain.Errorf(domain.EINVALID, "", "Every stage needs a description")
	ErrEmptyTotal            = domain.Errorf(domain.EINVALID, "", "Estimate total must be greater than zero to split into milestones")
)
