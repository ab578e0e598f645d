// Package logger es el logger estructurado de fotara-api (zerolog).
// Cada subsistema recibe un sublogger con Component; los campos de factura
// (invoice_id, document_id) se agregan con With en el orquestador.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config opciones del logger.
type Config struct {
	Env     string    // development -> consola legible; otro -> JSON
	Level   string    // trace, debug, info, warn, error (info si no se reconoce)
	Service string    // campo service en cada línea; vacío = sin campo
	Out     io.Writer // nil = os.Stdout. La CLI usa os.Stderr para no mezclar logs con su salida
}

// Logger envuelve zerolog para inyectarlo en use cases y adaptadores.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger y lo instala también como logger global de zerolog.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Out != nil {
		w = cfg.Out
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	zl := ctx.Logger()
	log.Logger = zl

	return &Logger{zl: zl}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop descarta todo; es el logger por defecto cuando no se inyecta uno.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Component devuelve un sublogger con component=name (fotara, worker_pool, redis_queue, ...).
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// With abre un contexto para sumar campos fijos; cerrar con .Logger().
func (l *Logger) With() zerolog.Context {
	return l.zl.With()
}
