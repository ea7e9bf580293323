package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/2beens/fittrack/internal/activity"
	"github.com/2beens/fittrack/internal/clock"
	"github.com/2beens/fittrack/internal/geo"
	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/location"
	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// replays a recorded route through the activity tracker on virtual time
// and prints the resulting session summary

type replayParams struct {
	Route         io.Reader
	ActivityType  activity.Type
	Interval      time.Duration
	MaxJumpMeters float64
	Start         time.Time
}

func main() {
	routePath := flag.String("route", "", "path to the recorded route CSV (lat,lng[,accuracy])")
	activityType := flag.String("type", "running", "activity type [running | walking | cycling | swimming]")
	interval := flag.Duration("interval", time.Second, "time between two recorded fixes")
	maxJump := flag.Float64("max-jump", 0, "drop fixes further than this many meters from the previous point (0 = off)")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	lvl, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("parse log level: %s", err)
	}
	log.SetLevel(lvl)

	if *routePath == "" {
		log.Fatalln("route CSV not specified, use -route")
	}

	t, err := activity.ParseType(*activityType)
	if err != nil {
		log.Fatalf("activity type: %s", err)
	}

	routeFile, err := os.Open(*routePath)
	if err != nil {
		log.Fatalf("open route: %s", err)
	}
	defer routeFile.Close()

	session, err := replay(context.Background(), replayParams{
		Route:         routeFile,
		ActivityType:  t,
		Interval:      *interval,
		MaxJumpMeters: *maxJump,
		Start:         time.Now(),
	})
	if err != nil {
		log.Fatalf("replay: %s", err)
	}

	printSummary(os.Stdout, session)
}

func replay(ctx context.Context, params replayParams) (*activity.Session, error) {
	if params.Interval <= 0 {
		return nil, fmt.Errorf("invalid replay interval: %s", params.Interval)
	}

	fixes, err := location.ReadFixesCSV(params.Route)
	if err != nil {
		return nil, fmt.Errorf("read route: %w", err)
	}
	log.Debugf("replaying %d fixes every %s", len(fixes), params.Interval)

	scheduler := clock.NewManualScheduler(params.Start)
	provider := location.NewReplayProvider(scheduler, params.Interval, fixes)
	tracker := activity.NewTracker(activity.TrackerParams{
		Provider:   provider,
		Scheduler:  scheduler,
		History:    history.NewMemoryStore(0),
		Metrics:    metrics.NewManager("fittrack", "replay", prometheus.NewRegistry()),
		NowFunc:    scheduler.Now,
		JumpFilter: geo.JumpFilter{MaxJumpMeters: params.MaxJumpMeters},
	})
	defer func() {
		if err := tracker.Close(); err != nil {
			log.Errorf("close tracker: %s", err)
		}
	}()

	if _, err := tracker.Start(ctx, params.ActivityType); err != nil {
		return nil, fmt.Errorf("start %s: %w", params.ActivityType, err)
	}

	for provider.Remaining() > 0 {
		scheduler.Advance(params.Interval)
	}

	return tracker.Stop(ctx)
}

func printSummary(w io.Writer, s *activity.Session) {
	fmt.Fprintf(w, "activity:  %s\n", s.Type)
	fmt.Fprintf(w, "elapsed:   %s\n", time.Duration(s.ElapsedSeconds)*time.Second)
	fmt.Fprintf(w, "distance:  %.2f km\n", s.DistanceMeters/1000)
	fmt.Fprintf(w, "pace:      %s /km\n", s.Pace)
	fmt.Fprintf(w, "calories:  %d kcal\n", s.CaloriesBurned)
	fmt.Fprintf(w, "points:    %d\n", len(s.Route))
	if b, ok := s.Route.Bounds(); ok {
		fmt.Fprintf(w, "bounds:    %.5f,%.5f .. %.5f,%.5f\n",
			b.SouthWest.Lat, b.SouthWest.Lng, b.NorthEast.Lat, b.NorthEast.Lng)
	}
}
