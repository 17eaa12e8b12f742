package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"energy-declaration/internal/declaration/application"
	declaration "energy-declaration/internal/declaration/domain"
	metering "energy-declaration/internal/metering/domain"
	"energy-declaration/internal/observability/logging"
	"energy-declaration/internal/observability/metrics"
	refdata "energy-declaration/internal/refdata/domain"
)

const (
	formatJSON = "json"
	formatXLSX = "xlsx"
	formatPDF  = "pdf"

	maxBodyBytes = 1 << 16
)

// Runner executes one declaration.
type Runner interface {
	Run(ctx context.Context, req application.Request) (*application.Declaration, error)
}

// ReferenceCatalog exposes the loaded reference snapshots.
type ReferenceCatalog interface {
	Years() []int
	Get(year int) (*refdata.ReferenceData, error)
}

// Handler serves the declaration API.
type Handler struct {
	runner    Runner
	reference ReferenceCatalog
	catalogue *refdata.Catalogue
	logger    logrus.FieldLogger
}

// NewHandler constructs a handler.
func NewHandler(runner Runner, reference ReferenceCatalog, catalogue *refdata.Catalogue, logger logrus.FieldLogger) (*Handler, error) {
	if runner == nil {
		return nil, errors.New("declaration handler: nil runner")
	}
	if reference == nil {
		return nil, errors.New("declaration handler: nil reference catalog")
	}
	if catalogue == nil {
		return nil, errors.New("declaration handler: nil catalogue")
	}
	return &Handler{
		runner:    runner,
		reference: reference,
		catalogue: catalogue,
		logger:    logging.Component(logger, "http"),
	}, nil
}

// Routes mounts the API on a chi router with CORS for the given origins.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/declarations", h.handleDeclaration)
		api.Get("/declarations/stream", h.handleStream)
		api.Get("/reference", h.handleReference)
	})
	return r
}

type declarationRequest struct {
	RefreshToken string `json:"refresh_token"`
	Year         int    `json:"year"`
}

type declarationResponse struct {
	RunID      string              `json:"run_id"`
	Year       int                 `json:"year"`
	Report     *declaration.Report `json:"report"`
	MasterData metering.MasterData `json:"master_data"`
}

func newDeclarationResponse(decl *application.Declaration) declarationResponse {
	return declarationResponse{
		RunID:      decl.RunID,
		Year:       decl.Year,
		Report:     decl.Report,
		MasterData: decl.MasterData,
	}
}

func (h *Handler) handleDeclaration(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatXLSX && format != formatPDF {
		http.Error(w, "format must be json, xlsx or pdf", http.StatusBadRequest)
		return
	}

	var body declarationRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}
	token := bearerToken(r)
	if token == "" {
		token = body.RefreshToken
	}
	year := body.Year
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}

	decl, err := h.runner.Run(r.Context(), application.Request{RefreshToken: token, Year: year})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	switch format {
	case formatXLSX:
		h.writeExport(w, decl, formatXLSX)
	case formatPDF:
		h.writeExport(w, decl, formatPDF)
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newDeclarationResponse(decl))
	}
}

func (h *Handler) writeExport(w http.ResponseWriter, decl *application.Declaration, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveExport(format, result, time.Since(start))
	}()

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case formatPDF:
		data, err = BuildDeclarationPDF(decl.Report, decl.MasterData)
		contentType = "application/pdf"
	default:
		data, err = BuildDeclarationXLSX(decl.Report, decl.MasterData)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		h.logger.WithError(err).WithField("format", format).Error("export failed")
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(decl.Year, format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type referenceYear struct {
	Year  int       `json:"year"`
	Hours int       `json:"hours"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

type referenceResponse struct {
	Years          []referenceYear         `json:"years"`
	PriceAreas     []refdata.PriceArea     `json:"price_areas"`
	ConnectedAreas []refdata.ConnectedArea `json:"connected_areas"`
	Fuels          []refdata.FuelSpec      `json:"fuels"`
	Substances     []refdata.SubstanceSpec `json:"substances"`
}

func (h *Handler) handleReference(w http.ResponseWriter, r *http.Request) {
	resp := referenceResponse{
		Years:          make([]referenceYear, 0),
		PriceAreas:     h.catalogue.PriceAreas(),
		ConnectedAreas: h.catalogue.ConnectedAreas(),
		Fuels:          h.catalogue.Fuels(),
		Substances:     h.catalogue.Substances(),
	}
	for _, year := range h.reference.Years() {
		ref, err := h.reference.Get(year)
		if err != nil {
			continue
		}
		timeline := ref.Timeline()
		entry := referenceYear{Year: year, Hours: ref.Hours()}
		if len(timeline) > 0 {
			entry.From = timeline[0]
			entry.To = timeline[len(timeline)-1]
		}
		resp.Years = append(resp.Years, entry)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status, message := classifyError(err)
	switch {
	case status == http.StatusGatewayTimeout:
		h.logger.WithError(err).Warn("declaration cancelled")
	case status >= http.StatusInternalServerError:
		h.logger.WithError(err).Error("declaration failed")
	}
	http.Error(w, message, status)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "declaration timed out"
	case errors.Is(err, application.ErrTransport), errors.Is(err, application.ErrUnmappedMeter):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func exportFilename(year int, format string) string {
	return "energideklaration-" + strconv.Itoa(year) + "." + format
}
