package fotara

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jhoicas/fotara-api/internal/domain"
)

// ── Constantes ────────────────────────────────────────────────────────────────

const (
	// DefaultEndpoint es el endpoint de producción de JoFotara.
	DefaultEndpoint = "https://backend.jofotara.gov.jo/core/invoices/"
	// DefaultTimeout es el timeout fijo de cada envío.
	DefaultTimeout = 30 * time.Second

	headerClientID  = "Client-Id"
	headerSecretKey = "Secret-Key"
	maxResponseBody = 1 << 20 // 1 MB
)

// FailureKind clasifica por qué falló un envío a nivel de transporte.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureConfiguration FailureKind = "configuration"
	FailureTimeout       FailureKind = "timeout"
	FailureConnection    FailureKind = "connection"
	FailureRequest       FailureKind = "request"
	FailureHTTPStatus    FailureKind = "http_status"
	FailureOversize      FailureKind = "response_too_large"
)

// SubmitResult resultado de la entrega al endpoint. Nunca clasifica el resultado de negocio:
// un 200 puede traer PASS, WARNING o ERROR dentro de EINV_RESULTS.
type SubmitResult struct {
	Success    bool
	StatusCode int
	Response   map[string]any // cuerpo JSON; {"raw_response": texto} si no es JSON
	RawBody    string
	Error      string
	Failure    FailureKind
}

// Submitter es el puerto de salida hacia JoFotara.
type Submitter interface {
	// Submit envía el documento. Devuelve siempre un resultado; err != nil cuando Success es false.
	Submit(ctx context.Context, clientID, secretKey, document string) (*SubmitResult, error)
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// ClientConfig parámetros del cliente HTTP.
type ClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client // opcional (tests)
}

// APIClient implementa Submitter con net/http.
type APIClient struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// NewAPIClient construye el cliente con timeout acotado (30 s por defecto).
func NewAPIClient(cfg ClientConfig) *APIClient {
	c := &APIClient{endpoint: cfg.Endpoint, timeout: cfg.Timeout, httpClient: cfg.HTTPClient}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

type submitPayload struct {
	Invoice string `json:"invoice"`
}

// Submit codifica el documento en base64, lo envuelve en JSON y lo envía con las credenciales en headers.
func (c *APIClient) Submit(ctx context.Context, clientID, secretKey, document string) (*SubmitResult, error) {
	if clientID == "" || secretKey == "" {
		return c.fail(FailureConfiguration, 0, nil, "", "las credenciales de JoFotara no están configuradas")
	}

	body, err := json.Marshal(submitPayload{Invoice: base64.StdEncoding.EncodeToString([]byte(document))})
	if err != nil {
		return c.fail(FailureRequest, 0, nil, "", fmt.Sprintf("serializar payload: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return c.fail(FailureRequest, 0, nil, "", fmt.Sprintf("crear request: %v", err))
	}
	req.Header.Set(headerClientID, clientID)
	req.Header.Set(headerSecretKey, secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := classifyError(ctx, err)
		return c.fail(kind, 0, nil, "", c.failureMessage(kind, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return c.fail(FailureRequest, resp.StatusCode, nil, "", fmt.Sprintf("leer respuesta: %v", err))
	}
	// Un cuerpo truncado no se interpreta: sin EINV_RESULTS completo no hay resultado de negocio.
	if len(raw) > maxResponseBody {
		return c.fail(FailureOversize, resp.StatusCode, nil, "",
			fmt.Sprintf("la respuesta de JoFotara supera %d bytes", maxResponseBody))
	}
	data := parseBody(raw)

	if resp.StatusCode == http.StatusOK {
		return &SubmitResult{Success: true, StatusCode: resp.StatusCode, Response: data, RawBody: string(raw)}, nil
	}
	return c.fail(FailureHTTPStatus, resp.StatusCode, data, string(raw), errorMessage(data, resp.StatusCode))
}

func (c *APIClient) fail(kind FailureKind, status int, data map[string]any, raw, msg string) (*SubmitResult, error) {
	if data == nil {
		data = map[string]any{}
	}
	res := &SubmitResult{StatusCode: status, Response: data, RawBody: raw, Error: msg, Failure: kind}
	if kind == FailureConfiguration {
		return res, fmt.Errorf("%w: %s", domain.ErrConfiguration, msg)
	}
	return res, fmt.Errorf("%w: %s", domain.ErrTransport, msg)
}

func (c *APIClient) failureMessage(kind FailureKind, err error) string {
	switch kind {
	case FailureTimeout:
		return fmt.Sprintf("la solicitud superó el tiempo límite de %d segundos", int(c.timeout.Seconds()))
	case FailureConnection:
		return "no se pudo conectar con la API de JoFotara"
	default:
		return err.Error()
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func classifyError(ctx context.Context, err error) FailureKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return FailureConnection
	}
	var dns *net.DNSError
	if errors.As(err, &dns) {
		return FailureConnection
	}
	return FailureRequest
}

// parseBody decodifica JSON; texto vacío = {}, texto no JSON = {"raw_response": texto}.
func parseBody(raw []byte) map[string]any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return map[string]any{"raw_response": string(raw)}
	}
	return data
}

func errorMessage(data map[string]any, status int) string {
	for _, key := range []string{"message", "error"} {
		if v, ok := data[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("API returned status %d", status)
}

var _ Submitter = (*APIClient)(nil)
