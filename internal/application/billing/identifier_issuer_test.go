package billing_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/fotara-api/internal/application/billing"
	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ammanLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Amman")
	require.NoError(t, err)
	return loc
}

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

func TestAllocate_ParalelasSonConsecutivas(t *testing.T) {
	const n = 64
	store := memory.NewStore()
	store.PutCompany(&entity.Company{ID: "co", Abbr: "CX", Counter: entity.CounterState{StarterCounter: 100}})
	for i := 0; i < n; i++ {
		store.PutInvoice(&entity.Invoice{ID: fmt.Sprintf("inv-%02d", i), CompanyID: "co", DocStatus: entity.DocStatusSubmitted})
	}
	issuer := billing.NewIdentifierIssuer(store, ammanLoc(t)).
		WithClock(fixedClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)))

	var (
		mu  sync.Mutex
		got []entity.Identifiers
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ids, err := issuer.Allocate(context.Background(), "co", id)
			assert.NoError(t, err)
			mu.Lock()
			got = append(got, ids)
			mu.Unlock()
		}(fmt.Sprintf("inv-%02d", i))
	}
	wg.Wait()

	require.Len(t, got, n)
	sort.Slice(got, func(i, j int) bool { return got[i].AuditCounter < got[j].AuditCounter })
	seenDoc := map[string]bool{}
	seenUUID := map[string]bool{}
	for i, ids := range got {
		assert.Equal(t, int64(101+i), ids.AuditCounter)
		assert.False(t, seenDoc[ids.DocumentID], "document_id duplicado %s", ids.DocumentID)
		assert.False(t, seenUUID[ids.DocumentUUID], "uuid duplicado")
		seenDoc[ids.DocumentID] = true
		seenUUID[ids.DocumentUUID] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seenDoc[fmt.Sprintf("CX-2024-05-02-%05d", i)])
	}

	c := store.Company("co")
	assert.Equal(t, int64(100+n), c.Counter.LatestCounter)
	assert.Equal(t, n, c.Counter.LastDailySeqNo)
	assert.Equal(t, "2024-05-02", c.Counter.LastDailySeqDate)
}

func TestAllocate_ReiniciaSecuenciaAlCambiarFechaDeNegocio(t *testing.T) {
	store := memory.NewStore()
	store.PutCompany(&entity.Company{ID: "co", Abbr: "CX"})
	for _, id := range []string{"a", "b", "c"} {
		store.PutInvoice(&entity.Invoice{ID: id, CompanyID: "co"})
	}

	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC) // 23:00 en Amman
	issuer := billing.NewIdentifierIssuer(store, ammanLoc(t)).WithClock(func() time.Time { return now })

	a, err := issuer.Allocate(context.Background(), "co", "a")
	require.NoError(t, err)
	b, err := issuer.Allocate(context.Background(), "co", "b")
	require.NoError(t, err)
	assert.Equal(t, "CX-2024-05-01-00001", a.DocumentID)
	assert.Equal(t, "CX-2024-05-01-00002", b.DocumentID)

	now = time.Date(2024, 5, 1, 21, 30, 0, 0, time.UTC) // 00:30 del día siguiente en Amman
	c, err := issuer.Allocate(context.Background(), "co", "c")
	require.NoError(t, err)
	assert.Equal(t, "CX-2024-05-02-00001", c.DocumentID)
	assert.Equal(t, int64(3), c.AuditCounter)
}

func TestAllocate_ReintentoReutilizaIdentificadores(t *testing.T) {
	store := memory.NewStore()
	state := entity.CounterState{LatestCounter: 7, LastDailySeqDate: "2024-05-02", LastDailySeqNo: 3}
	store.PutCompany(&entity.Company{ID: "co", Abbr: "CX", Counter: state})
	store.PutInvoice(&entity.Invoice{
		ID: "inv", CompanyID: "co", Status: entity.FotaraStatusError,
		DocumentID: "CX-2024-05-02-00003", DocumentUUID: "uuid-3", AuditCounter: 7,
	})

	issuer := billing.NewIdentifierIssuer(store, ammanLoc(t))
	ids, err := issuer.Allocate(context.Background(), "co", "inv")
	require.NoError(t, err)

	assert.Equal(t, entity.Identifiers{DocumentID: "CX-2024-05-02-00003", DocumentUUID: "uuid-3", AuditCounter: 7}, ids)
	assert.Equal(t, state, store.Company("co").Counter)
	inv := store.Invoice("inv")
	assert.Equal(t, entity.FotaraStatusQueued, inv.Status)
	assert.NotNil(t, inv.QueuedAt)
}

func TestAllocate_EmpresaInexistenteNoAsigna(t *testing.T) {
	store := memory.NewStore()
	store.PutInvoice(&entity.Invoice{ID: "inv", CompanyID: "ghost"})

	_, err := billing.NewIdentifierIssuer(store, time.UTC).Allocate(context.Background(), "ghost", "inv")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.Invoice("inv").DocumentID)
}

func TestAllocate_Guardas(t *testing.T) {
	store := memory.NewStore()
	store.PutCompany(&entity.Company{ID: "co", Abbr: "CX"})
	store.PutCompany(&entity.Company{ID: "other", Abbr: "OT"})
	store.PutInvoice(&entity.Invoice{ID: "queued", CompanyID: "co", Status: entity.FotaraStatusQueued})
	store.PutInvoice(&entity.Invoice{ID: "ok", CompanyID: "co", Status: entity.FotaraStatusSuccess})
	store.PutInvoice(&entity.Invoice{ID: "foreign", CompanyID: "other"})
	issuer := billing.NewIdentifierIssuer(store, time.UTC)
	ctx := context.Background()

	_, err := issuer.Allocate(ctx, "co", "queued")
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	_, err = issuer.Allocate(ctx, "co", "ok")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = issuer.Allocate(ctx, "co", "foreign")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = issuer.Allocate(ctx, "co", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int64(0), store.Company("co").Counter.LatestCounter)
}
