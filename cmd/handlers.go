package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/saferoute/internal/config"
	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/predict"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	predictor *predict.Predictor
	predict   config.PredictConfig
}

// predictRequest is the body of POST /predict_route. Only lat and lon are
// required; the contextual attributes feed the fallback classifier.
type predictRequest struct {
	Lat              *float64 `json:"lat"`
	Lon              *float64 `json:"lon"`
	TimeOfDay        *string  `json:"time_of_day"`
	AreaType         *string  `json:"area_type"`
	StreetLighting   *int     `json:"street_lighting"`
	CCTVNearby       *int     `json:"cctv_nearby"`
	PoliceDistanceKM *float64 `json:"police_distance_km"`
}

type predictResponse struct {
	Res           string       `json:"res"`
	Method        model.Method `json:"method"`
	IncidentCount int          `json:"incident_count"`
}

func (h *handlers) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello from saferoute"))
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	snap := h.predictor.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"records": snap.Len(),
		"classes": snap.Classes(),
	})
}

func (h *handlers) predictRoute(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, r, http.StatusBadRequest, "lat and lon are required")
		return
	}

	q := model.QueryPoint{
		Latitude:         *req.Lat,
		Longitude:        *req.Lon,
		TimeOfDay:        req.TimeOfDay,
		AreaType:         req.AreaType,
		StreetLighting:   req.StreetLighting,
		CCTVNearby:       req.CCTVNearby,
		PoliceDistanceKM: req.PoliceDistanceKM,
	}
	if h.predict.FillDefaults {
		q = q.WithDefaults(h.predict.Defaults)
	}

	pred, err := h.predictor.Predict(r.Context(), q)
	if err != nil {
		if predict.IsInputError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("prediction failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Res:           pred.Label,
		Method:        pred.Method,
		IncidentCount: pred.NeighborCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": requestIDFrom(r.Context()),
	})
}
