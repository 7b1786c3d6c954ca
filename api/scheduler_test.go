package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/ledger-core/api"
	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
	"github.com/pocketledger/ledger-core/store/memory"
)

func TestReplayScheduler_SweepsAllOwners(t *testing.T) {
	// GIVEN: Active day-1 templates for two owners
	// WHEN: One sweep runs on June 15
	// THEN: Both owners' June occurrences are applied, and a second sweep
	//       applies nothing

	st := memory.New()
	ledgerSvc := ledger.NewService(st, currency.NewRegistry(),
		ledger.WithClock(ledger.FixedClock{At: testNow}))
	engine := schedule.NewEngine(st, ledgerSvc)
	ctx := context.Background()

	for i, owner := range []ledger.OwnerID{"alice", "bob"} {
		require.NoError(t, st.CreateTemplate(ctx, ledger.ScheduledTemplate{
			ID: ledger.TemplateID("tpl-" + string(owner)), Owner: owner, DayOfMonth: 1,
			Amount:    ledger.Amount{Value: ledger.MustParseDecimal("50"), Currency: "USD"},
			Direction: ledger.Deposit, Active: true,
			CreatedAt: testNow.Add(time.Duration(i) * time.Second),
		}))
	}

	scheduler := api.NewReplayScheduler(st, engine, nil)
	scheduler.RunNow()

	for _, owner := range []ledger.OwnerID{"alice", "bob"} {
		b, err := st.GetBalance(ctx, owner, "USD")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.True(t, b.Total.Equal(ledger.MustParseDecimal("50")))
	}

	scheduler.RunNow()
	b, err := st.GetBalance(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(ledger.MustParseDecimal("50")))
}
