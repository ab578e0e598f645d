package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/fotara-api/internal/domain"
	"github.com/jhoicas/fotara-api/internal/domain/entity"
	"github.com/jhoicas/fotara-api/internal/domain/repository"
	"github.com/jhoicas/fotara-api/pkg/secret"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL (pool o tx).
type CompanyRepo struct {
	q   Querier
	box *secret.Box
}

// NewCompanyRepository construye el adaptador. box abre fotara_secret_key si viene sellada;
// nil equivale a un Box sin llave.
func NewCompanyRepository(q Querier, box *secret.Box) *CompanyRepo {
	if box == nil {
		box = &secret.Box{}
	}
	return &CompanyRepo{q: q, box: box}
}

const companyColumns = `
	id, name, abbr, COALESCE(tax_id, ''), vat_registered,
	fotara_enabled, fotara_auto_send, fotara_save_logs,
	COALESCE(fotara_client_id, ''), COALESCE(fotara_secret_key, ''),
	COALESCE(income_source_sequence, ''), COALESCE(default_city_code, ''),
	COALESCE(uom_mappings, '{}'::jsonb),
	starter_counter, latest_counter, COALESCE(last_daily_seq_date, ''), last_daily_seq_no,
	created_at, updated_at`

// GetByID obtiene una empresa por ID con el secreto ya abierto.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.get(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
}

// LockCounter lee la empresa con SELECT ... FOR UPDATE. Solo sirve dentro de una transacción;
// el bloqueo de la fila dura hasta commit/rollback.
func (r *CompanyRepo) LockCounter(ctx context.Context, id string) (*entity.Company, error) {
	return r.get(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1 FOR UPDATE`, id)
}

func (r *CompanyRepo) get(ctx context.Context, query, id string) (*entity.Company, error) {
	var (
		c      entity.Company
		sealed string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Abbr, &c.TaxID, &c.VATRegistered,
		&c.FotaraEnabled, &c.AutoSend, &c.SaveLogs,
		&c.ClientID, &sealed,
		&c.IncomeSourceSequence, &c.DefaultCityCode,
		&c.UOMMappings,
		&c.Counter.StarterCounter, &c.Counter.LatestCounter, &c.Counter.LastDailySeqDate, &c.Counter.LastDailySeqNo,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: empresa %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	if c.SecretKey, err = r.box.Open(sealed); err != nil {
		return nil, fmt.Errorf("%w: secret key de la empresa %s: %v", domain.ErrConfiguration, id, err)
	}
	return &c, nil
}

// UpdateCounter persiste el estado de contadores. latest_counter nunca decrece.
func (r *CompanyRepo) UpdateCounter(ctx context.Context, id string, state entity.CounterState) error {
	query := `
		UPDATE companies
		SET latest_counter = $2, last_daily_seq_date = $3, last_daily_seq_no = $4, updated_at = NOW()
		WHERE id = $1 AND latest_counter <= $2`
	tag, err := r.q.Exec(ctx, query, id, state.LatestCounter, nullIfEmpty(state.LastDailySeqDate), state.LastDailySeqNo)
	if err != nil {
		return fmt.Errorf("update company counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contador de la empresa %s", domain.ErrConflict, id)
	}
	return nil
}
