package fotara

import (
	"fmt"
	"time"
	_ "time/tzdata" // zona horaria de negocio disponible aunque el host no tenga zoneinfo

	"github.com/jhoicas/fotara-api/internal/domain/entity"
)

// DefaultTimezone fija la fecha de negocio, independiente de la hora local del servidor.
const DefaultTimezone = "Asia/Amman"

const dateLayout = "2006-01-02"

// LoadLocation carga la zona horaria; vacío = DefaultTimezone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("zona horaria %q: %w", name, err)
	}
	return loc, nil
}

// BusinessDate devuelve YYYY-MM-DD de t en loc.
func BusinessDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// Allocation es el resultado puro de avanzar los contadores.
type Allocation struct {
	State        entity.CounterState
	AuditCounter int64
	DailySeq     int
	Date         string
}

// NextCounters avanza el ICV y la secuencia diaria para la fecha de negocio dada.
// ICV = max(starter, latest) + 1; la secuencia diaria vuelve a 1 cuando cambia la fecha.
func NextCounters(s entity.CounterState, date string) Allocation {
	icv := s.LatestCounter
	if s.StarterCounter > icv {
		icv = s.StarterCounter
	}
	icv++

	seq := 1
	if s.LastDailySeqDate == date {
		seq = s.LastDailySeqNo + 1
	}

	next := s
	next.LatestCounter = icv
	next.LastDailySeqDate = date
	next.LastDailySeqNo = seq
	return Allocation{State: next, AuditCounter: icv, DailySeq: seq, Date: date}
}

// FormatDocumentID arma {abbr}-{fecha}-{secuencia de 5 dígitos}.
func FormatDocumentID(abbr, date string, seq int) string {
	return fmt.Sprintf("%s-%s-%05d", abbr, date, seq)
}
