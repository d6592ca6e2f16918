package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"kisansight/api/internal/advisor"
	"kisansight/api/internal/farm"
	"kisansight/api/internal/i18n"
	"kisansight/api/internal/render"
	"kisansight/api/internal/store"
	"kisansight/api/internal/util"
)

// Advisor is what the handlers need from the request clients.
type Advisor interface {
	PredictCrops(ctx context.Context, in farm.ValidCropInput, lang i18n.Lang) (farm.CropPredictionResult, error)
	DetectDisease(ctx context.Context, in farm.ValidImageInput, lang i18n.Lang) (farm.DiseaseDetectionResult, error)
}

type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
	DefaultLang    i18n.Lang
}

type Handle struct {
	adv   Advisor
	repo  store.Repository
	pages *render.Pages
	cat   *i18n.Catalog
	log   *zap.Logger
	opts  Options
}

func New(adv Advisor, repo store.Repository, pages *render.Pages, log *zap.Logger, opts Options) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	if repo == nil {
		repo = store.NewMemory(0)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 180 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.DefaultLang == "" {
		opts.DefaultLang = i18n.English
	}
	return &Handle{
		adv:   adv,
		repo:  repo,
		pages: pages,
		cat:   i18n.Default(),
		log:   log,
		opts:  opts,
	}
}

// Routes registers the web shell and the JSON API. The returned mux is open so
// callers can mount more handlers (the Telegram webhook).
func (h *Handle) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)

	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/predict", h.PredictPage)
	mux.HandleFunc("/detect", h.DetectPage)
	mux.HandleFunc("/reports", h.ReportsPage)

	mux.HandleFunc("/api/v1/states", h.States)
	mux.HandleFunc("/api/v1/districts", h.Districts)
	mux.HandleFunc("/api/v1/i18n/{lang}", h.Strings)
	mux.HandleFunc("/api/v1/predict", h.Predict)
	mux.HandleFunc("/api/v1/detect", h.Detect)
	mux.HandleFunc("/api/v1/reports", h.Reports)
	return mux
}

// WithAccessLog wraps next with one zap line per request.
func WithAccessLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.code),
			zap.Duration("took", time.Since(start)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (s *statusWriter) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// lang picks ?lang= first, then Accept-Language, then the configured default.
func (h *Handle) lang(r *http.Request) i18n.Lang {
	if l, ok := i18n.Parse(r.URL.Query().Get("lang")); ok {
		return l
	}
	return i18n.Match(r.Header.Get("Accept-Language"), h.opts.DefaultLang)
}

// deadline honours X-Request-Timeout or ?timeoutSec= (seconds) over the configured default.
func (h *Handle) deadline(r *http.Request) time.Duration {
	d := h.opts.RequestTimeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	}
	return d
}

// statusFor maps the advisor error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var fe farm.FieldErrors
	if errors.As(err, &fe) {
		return http.StatusUnprocessableEntity
	}
	switch advisor.Kind(err) {
	case "input":
		return http.StatusUnprocessableEntity
	case "configuration":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *Handle) predict(ctx context.Context, in farm.ValidCropInput, lang i18n.Lang) (farm.FarmReport, error) {
	res, err := h.adv.PredictCrops(ctx, in, lang)
	if err != nil {
		return farm.FarmReport{}, err
	}
	rep := farm.FarmReport{
		Language:   string(lang),
		Location:   in.Location,
		Soil:       in.Soil,
		Climate:    in.Climate,
		Prediction: res,
	}
	saved, err := h.repo.SavePrediction(context.WithoutCancel(ctx), rep)
	if err != nil {
		h.log.Warn("history: save prediction", zap.Error(err))
		return rep, nil
	}
	return saved, nil
}

func (h *Handle) detect(ctx context.Context, in farm.ValidImageInput, lang i18n.Lang) (farm.DiagnosisRecord, error) {
	res, err := h.adv.DetectDisease(ctx, in, lang)
	if err != nil {
		return farm.DiagnosisRecord{}, err
	}
	rec := farm.DiagnosisRecord{Language: string(lang), Diagnosis: res}
	if img, err := advisor.DecodeImage(in.Image); err == nil {
		rec.ImageHash = util.SHA256Hex(img.Data)
		rec.MIMEType = img.MIMEType
	}
	saved, err := h.repo.SaveDiagnosis(context.WithoutCancel(ctx), rec)
	if err != nil {
		h.log.Warn("history: save diagnosis", zap.Error(err))
		return rec, nil
	}
	return saved, nil
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.repo.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
