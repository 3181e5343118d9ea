package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops/internal/api"
	"fieldops/internal/document"
	"fieldops/internal/job"
	"fieldops/internal/schedule"
	"fieldops/internal/sequence"
	"fieldops/pkg/config"
	"fieldops/pkg/logx"
)

type Dependencies struct {
	Cfg config.Config
	DB  *pgxpool.Pool
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestLogger(logx.Component("http")))
	r.Use(api.CORSMiddleware(api.CORSOptions{AllowedOrigins: deps.Cfg.AllowedOrigins}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	assembler := document.NewAssembler(deps.DB,
		document.WithNumbering(deps.Cfg.Numbering.PrefixOverrides, deps.Cfg.Numbering.Padding),
		document.WithMaxAttempts(deps.Cfg.Numbering.MaxAttempts),
	)
	docsRepo := document.NewRepository(deps.DB)
	counterStore := sequence.NewPGStore(deps.DB)
	docHandlers := document.Handlers{
		Assembler: assembler,
		Documents: docsRepo,
		Counters:  counterStore,
		Numbers: sequence.NewAllocator(counterStore,
			sequence.WithPrefixOverrides(deps.Cfg.Numbering.PrefixOverrides),
			sequence.WithPadding(deps.Cfg.Numbering.Padding),
			sequence.WithMaxAttempts(deps.Cfg.Numbering.MaxAttempts),
		),
	}

	plansRepo := schedule.NewRepository(deps.DB)
	planHandlers := schedule.Handlers{
		Plans:           plansRepo,
		Documents:       docsRepo,
		MaxInstallments: deps.Cfg.Schedule.MaxInstallments,
	}

	jobsRepo := job.NewRepository(deps.DB)
	jobService := job.NewService(deps.DB, jobsRepo, assembler,
		job.WithNumbering(deps.Cfg.Numbering.PrefixOverrides, deps.Cfg.Numbering.Padding),
		job.WithMaxAttempts(deps.Cfg.Numbering.MaxAttempts),
	)
	jobHandlers := job.Handlers{Jobs: jobsRepo, Service: jobService}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pricing/preview", docHandlers.Preview)

		r.Post("/documents", docHandlers.Create)
		r.Get("/documents/{id}", docHandlers.Get)

		r.Get("/counters/{series}", docHandlers.PeekCounter)
		r.Post("/counters/{series}/allocate", docHandlers.AllocateNumber)

		r.Get("/jobs", jobHandlers.List)
		r.Post("/jobs", jobHandlers.Create)
		r.Get("/jobs/{id}", jobHandlers.Get)
		r.Post("/jobs/{id}/status", jobHandlers.UpdateStatus)
		r.Post("/jobs/{id}/invoice", jobHandlers.Invoice)

		r.Put("/invoices/{id}/payment-plan", planHandlers.Put)
		r.Get("/invoices/{id}/payment-plan", planHandlers.Get)
		r.Delete("/invoices/{id}/payment-plan", planHandlers.Delete)
		r.Post("/invoices/{id}/payment-plan/installments/{idx}/payment", planHandlers.RecordPayment)
	})

	return r
}
