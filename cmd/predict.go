package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/saferoute/internal/model"
	"github.com/sells-group/saferoute/internal/predict"
)

var (
	predictLat            float64
	predictLon            float64
	predictTimeOfDay      string
	predictAreaType       string
	predictStreetLighting int
	predictCCTVNearby     int
	predictPoliceDistance float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the safety level of a single point and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("predict"); err != nil {
			return err
		}

		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		if cfg.Predict.FillDefaults {
			q = q.WithDefaults(cfg.Predict.Defaults)
		}

		snap, _, err := loadSnapshot(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		pred, err := predict.New(snap).Predict(cmd.Context(), q)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pred)
	},
}

// queryFromFlags builds a query from the flags; contextual attributes are
// only set when their flag was given.
func queryFromFlags(cmd *cobra.Command) (model.QueryPoint, error) {
	f := cmd.Flags()
	if !f.Changed("lat") || !f.Changed("lon") {
		return model.QueryPoint{}, eris.New("predict: --lat and --lon are required")
	}

	q := model.QueryPoint{Latitude: predictLat, Longitude: predictLon}
	if f.Changed("time-of-day") {
		q.TimeOfDay = &predictTimeOfDay
	}
	if f.Changed("area-type") {
		q.AreaType = &predictAreaType
	}
	if f.Changed("street-lighting") {
		q.StreetLighting = &predictStreetLighting
	}
	if f.Changed("cctv-nearby") {
		q.CCTVNearby = &predictCCTVNearby
	}
	if f.Changed("police-distance-km") {
		q.PoliceDistanceKM = &predictPoliceDistance
	}
	return q, nil
}

func init() {
	f := predictCmd.Flags()
	f.Float64Var(&predictLat, "lat", 0, "latitude in degrees")
	f.Float64Var(&predictLon, "lon", 0, "longitude in degrees")
	f.StringVar(&predictTimeOfDay, "time-of-day", "", "time of day, e.g. Evening")
	f.StringVar(&predictAreaType, "area-type", "", "area type, e.g. Commercial")
	f.IntVar(&predictStreetLighting, "street-lighting", 0, "street lighting present (0 or 1)")
	f.IntVar(&predictCCTVNearby, "cctv-nearby", 0, "CCTV nearby (0 or 1)")
	f.Float64Var(&predictPoliceDistance, "police-distance-km", 0, "distance to the nearest police station in km")
	rootCmd.AddCommand(predictCmd)
}
