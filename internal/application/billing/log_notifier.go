package billing

import (
	"context"

	"github.com/jhoicas/fotara-api/pkg/logger"
)

// LogNotifier escribe las notificaciones en el log cuando no hay canal de pub/sub.
type LogNotifier struct {
	log *logger.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier crea el notificador.
func NewLogNotifier(lg *logger.Logger) *LogNotifier {
	if lg == nil {
		lg = logger.Nop()
	}
	return &LogNotifier{log: lg.Component("notifier")}
}

// Notify implementa Notifier.
func (n *LogNotifier) Notify(_ context.Context, actorID string, msg Notification) error {
	n.log.Info().
		Str("actor_id", actorID).
		Str("invoice_id", msg.InvoiceID).
		Str("document_id", msg.DocumentID).
		Str("status", msg.Status).
		Str("message", msg.Message).
		Msg("resultado de envío JoFotara")
	return nil
}
