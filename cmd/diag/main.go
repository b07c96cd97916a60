// Command diag cross-checks the geometric look angles of a configured run
// against go-satellite's own ECI look-angle routine.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/trackgen/internal/config"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/propagation"
	"github.com/star/trackgen/internal/tle"
	"github.com/star/trackgen/internal/transform"
)

func main() {
	configPath := flag.String("config", "trackgen.properties", "configuration file")
	points := flag.Int("points", 20, "number of whole-second instants to compare")
	flag.Parse()

	logger := logging.NewFromEnv()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		fmt.Println("ERROR loading config:", err)
		os.Exit(1)
	}

	entry, err := tle.Resolve(context.Background(), cfg.TLE, logger)
	if err != nil {
		fmt.Println("ERROR loading TLE:", err)
		os.Exit(1)
	}
	prop, err := propagation.NewSGP4Propagator(entry, cfg.Gravity)
	if err != nil {
		fmt.Println("ERROR initializing SGP4:", err)
		os.Exit(1)
	}
	fmt.Printf("Target: %s (NORAD %d) epoch %v\n", entry.Label(), entry.NORADID, entry.Epoch.Format(time.RFC3339))

	obs := transform.NewObserverPosition(cfg.Site)
	site := satellite.LatLong{Latitude: obs.LatDeg * math.Pi / 180, Longitude: obs.LonDeg * math.Pi / 180}

	n := max(*points, 2)
	span := cfg.Window.End.Sub(cfg.Window.Start)
	var maxDAz, maxDEl float64

	fmt.Printf("%-24s %10s %10s %10s %10s %9s %9s\n", "time", "az", "ref_az", "el", "ref_el", "d_az", "d_el")
	for i := range n {
		t := cfg.Window.Start.Add(span * time.Duration(i) / time.Duration(n-1)).Truncate(time.Second)

		teme, err := prop.PropagateTEME(t)
		if err != nil {
			fmt.Printf("%s ERROR %v\n", t.Format(time.RFC3339), err)
			continue
		}
		ours := obs.Project(transform.TEMEToECEF(teme, t))

		jd := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
		ref := satellite.ECIToLookAngles(satellite.Vector3{X: teme.X, Y: teme.Y, Z: teme.Z}, site, cfg.Site.AltM/1000, jd)
		refAz := transform.NormalizeAzimuth(ref.Az * 180 / math.Pi)
		refEl := ref.El * 180 / math.Pi

		dAz := math.Abs(ours.AzimuthDeg - refAz)
		if dAz > 180 {
			dAz = 360 - dAz
		}
		dEl := math.Abs(ours.ElevationDeg - refEl)
		maxDAz = max(maxDAz, dAz)
		maxDEl = max(maxDEl, dEl)

		fmt.Printf("%-24s %10.4f %10.4f %10.4f %10.4f %9.4f %9.4f\n",
			t.Format(time.RFC3339), ours.AzimuthDeg, refAz, ours.ElevationDeg, refEl, dAz, dEl)
	}

	fmt.Printf("\nmax |d_az| = %.4f deg, max |d_el| = %.4f deg\n", maxDAz, maxDEl)
}
