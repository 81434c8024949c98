// Package ledger turns resolved split allocations into friend and debt
// records.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/finagent/internal/models"
)

// Writer is the persistence surface the ledger needs.
// storage.LedgerStore satisfies it.
type Writer interface {
	ListFriends(ctx context.Context, userID string) ([]*models.Friend, error)
	CreateFriend(ctx context.Context, friend *models.Friend) error
	CreateDebt(ctx context.Context, debt *models.Debt) error
}

// Item kinds reported in ItemFailure.
const (
	KindFriend = "friend"
	KindDebt   = "debt"
)

// ItemFailure is one participant whose records could not be written.
type ItemFailure struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Err  error  `json:"-"`
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s %q: %v", f.Kind, f.Name, f.Err)
}

func (f ItemFailure) Unwrap() error {
	return f.Err
}

// PartialWriteError reports participants that failed while others were
// written. Written records are kept.
type PartialWriteError struct {
	Failures []ItemFailure
	Written  int
}

func (e *PartialWriteError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d ledger writes failed (%d succeeded): %s",
		len(e.Failures), e.Written, strings.Join(msgs, "; "))
}

func (e *PartialWriteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// AsPartialWrite extracts a *PartialWriteError from err.
func AsPartialWrite(err error) (*PartialWriteError, bool) {
	var pw *PartialWriteError
	ok := errors.As(err, &pw)
	return pw, ok
}
