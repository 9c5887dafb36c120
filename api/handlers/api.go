package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/databases"
	"github.com/harshach55/AssistQR/models"
	"github.com/harshach55/AssistQR/notify"
)

// reportTimeout bounds the ingestion routes, which upload images and wait
// for the notification fan-out before responding
const reportTimeout = 90 * time.Second

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	Notifier *notify.Notifier
	Images   ImageHost
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: databases.NewOwnerDatabase(a.dbHelper)}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	o := Owner{DB: databases.NewOwnerDatabase(a.dbHelper)}
	v := Vehicle{
		DB:  databases.NewVehicleDatabase(a.dbHelper),
		CDB: databases.NewContactDatabase(a.dbHelper),
		RDB: databases.NewReportDatabase(a.dbHelper),
	}
	c := Contact{
		DB:  databases.NewContactDatabase(a.dbHelper),
		VDB: databases.NewVehicleDatabase(a.dbHelper),
	}
	report := Report{
		VDB:      databases.NewVehicleDatabase(a.dbHelper),
		CDB:      databases.NewContactDatabase(a.dbHelper),
		RDB:      databases.NewReportDatabase(a.dbHelper),
		Images:   a.Images,
		Notifier: a.Notifier,
	}
	webhook := SMSWebhook{
		VDB:      databases.NewVehicleDatabase(a.dbHelper),
		CDB:      databases.NewContactDatabase(a.dbHelper),
		RDB:      databases.NewReportDatabase(a.dbHelper),
		Notifier: a.Notifier,
	}
	cloudinaryHandler := CloudinaryHandler{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/owner/create-owner", http.HandlerFunc(o.OwnerCreateHandler)).Methods("POST")
	apiCreate.Handle("/owner/check-email", http.HandlerFunc(o.OwnerCheckEmailHandler)).Methods("POST")

	apiCreate.Handle("/vehicle", api.Middleware(http.HandlerFunc(v.CreateVehicleHandler))).Methods("POST")
	apiCreate.Handle("/vehicles", api.Middleware(http.HandlerFunc(v.VehiclesByOwnerHandler))).Methods("GET")
	apiCreate.Handle("/vehicle/{vehicle_id}", api.Middleware(http.HandlerFunc(v.DeleteVehicleHandler))).Methods("DELETE")

	apiCreate.Handle("/vehicle/{vehicle_id}/contacts", api.Middleware(http.HandlerFunc(c.AddContactHandler))).Methods("POST")
	apiCreate.Handle("/vehicle/{vehicle_id}/contacts", api.Middleware(http.HandlerFunc(c.ContactsByVehicleHandler))).Methods("GET")
	apiCreate.Handle("/vehicle/{vehicle_id}/contacts/{contact_id}", api.Middleware(http.HandlerFunc(c.DeleteContactHandler))).Methods("DELETE")

	// public surfaces: a bystander scanning the sticker has no account
	apiCreate.Handle("/scan", http.HandlerFunc(v.ScanHandler)).Methods("GET")
	apiCreate.Handle("/report", api.TimeoutMiddleware(reportTimeout)(http.HandlerFunc(report.CreateReportHandler))).Methods("POST")
	apiCreate.Handle("/report/cellular", api.TimeoutMiddleware(reportTimeout)(http.HandlerFunc(report.CreateCellularReportHandler))).Methods("POST")
	apiCreate.Handle("/sms/webhook", http.HandlerFunc(webhook.InboundSMSHandler)).Methods("POST")

	apiCreate.Handle("/generate-signature", api.Middleware(http.HandlerFunc(cloudinaryHandler.GenerateSignature))).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("assistqr-api has connected to the database")

	a.Images, err = NewCloudinaryHost(a.Config.CloudinaryURL)
	if err != nil {
		zap.S().With(err).Error("failed to initialize cloudinary")
		return err
	}
	if a.Images == nil {
		zap.S().Warn("CLOUDINARY_URL not set, report image uploads disabled")
	}

	a.Notifier = notify.New(&a.Config)

	// initialize api router
	a.initializeRoutes()
	return nil

}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
