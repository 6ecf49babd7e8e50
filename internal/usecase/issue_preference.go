package usecase

import (
	"context"
	"errors"
	"fmt"
)

// IssuePreference creates a payment intent with the processor for a staged
// attempt and returns the redirect URL. Safe to retry from a fresh staging
// attempt: the staging store is not the source of order truth.
type IssuePreference struct {
	staging StagingRepo
	gateway PaymentGateway
}

func NewIssuePreference(staging StagingRepo, gateway PaymentGateway) *IssuePreference {
	return &IssuePreference{staging: staging, gateway: gateway}
}

func (uc *IssuePreference) Execute(ctx context.Context, stagingToken string) (*Preference, error) {
	attempt, err := uc.staging.GetByToken(ctx, stagingToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("token %s: %w", stagingToken, ErrStagingNotFound)
		}
		return nil, fmt.Errorf("load staged attempt: %w", err)
	}

	if len(attempt.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCart)
	}
	for i := range attempt.Items {
		if !attempt.Items[i].UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: non-positive price on line %d", ErrInvalidCart, i)
		}
	}

	pref, err := uc.gateway.CreatePreference(ctx, attempt)
	if err != nil {
		return nil, err
	}
	return pref, nil
}
