package journal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejinpark/commercepay/pkg/journal"
)

func TestJournal_CompensatesInReverseOrder(t *testing.T) {
	var compensated []string

	j := journal.New("order-1")
	j.Append(journal.Entry{
		Name:       "first",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "first"); return nil },
	})
	j.Append(journal.Entry{
		Name:       "second",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "second"); return nil },
	})
	j.Append(journal.Entry{
		Name:       "third",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "third"); return nil },
	})

	err := j.Compensate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, compensated)
}

func TestJournal_NilCompensateSkipped(t *testing.T) {
	var compensated []string

	j := journal.New("order-2")
	j.Append(journal.Entry{Name: "local-only"})
	j.Append(journal.Entry{
		Name:       "external",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "external"); return nil },
	})

	err := j.Compensate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"external"}, compensated)
	assert.Equal(t, 2, j.Len())
}

func TestJournal_AllEntriesAttemptedDespiteErrors(t *testing.T) {
	var compensated []string

	j := journal.New("order-3")
	j.Append(journal.Entry{
		Name:       "first",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "first"); return nil },
	})
	j.Append(journal.Entry{
		Name:       "second",
		Compensate: func(ctx context.Context) error { return errors.New("gateway unreachable") },
	})
	j.Append(journal.Entry{
		Name:       "third",
		Compensate: func(ctx context.Context) error { compensated = append(compensated, "third"); return nil },
	})

	err := j.Compensate(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway unreachable")
	assert.Contains(t, err.Error(), `"second"`)
	// The failing entry does not stop the other compensations.
	assert.Equal(t, []string{"third", "first"}, compensated)
}

func TestJournal_Empty(t *testing.T) {
	j := journal.New("empty")
	assert.NoError(t, j.Compensate(context.Background()))
	assert.Equal(t, 0, j.Len())
}

func TestJournal_MultipleErrorsCollected(t *testing.T) {
	j := journal.New("order-4")
	j.Append(journal.Entry{
		Name:       "a",
		Compensate: func(ctx context.Context) error { return errors.New("err-a") },
	})
	j.Append(journal.Entry{
		Name:       "b",
		Compensate: func(ctx context.Context) error { return errors.New("err-b") },
	})

	err := j.Compensate(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "err-a")
	assert.Contains(t, err.Error(), "err-b")
}
