package app

import (
	"net/http"

	"github.com/saurabh97858/myshow-sub000/api"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	systemInfo := api.SystemInfo{
		Version:     version,
		Environment: app.config.Env,
	}

	resp := api.HealthcheckResponse{
		Status:     status,
		SystemInfo: systemInfo,
	}

	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// GetOpenAPISpec serves the embedded API description as JSON.
func (app *Application) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, app.openapi, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
