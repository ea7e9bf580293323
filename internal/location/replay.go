package location

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/clock"
	"github.com/2beens/fittrack/internal/geo"

	log "github.com/sirupsen/logrus"
)

// ReplayProvider replays a recorded route, one fix per interval, on the given
// scheduler. The replay position survives unwatch/watch, so pausing a session
// and resuming it continues the route where it stopped.
type ReplayProvider struct {
	mu        sync.Mutex
	scheduler clock.Scheduler
	interval  time.Duration
	fixes     []Fix
	pos       int
	nextSub   Subscription
	cancels   map[Subscription]clock.CancelFunc
}

func NewReplayProvider(scheduler clock.Scheduler, interval time.Duration, fixes []Fix) *ReplayProvider {
	return &ReplayProvider{
		scheduler: scheduler,
		interval:  interval,
		fixes:     fixes,
		cancels:   make(map[Subscription]clock.CancelFunc),
	}
}

func (r *ReplayProvider) Watch(_ WatchOptions, onUpdate UpdateFunc, onError ErrorFunc) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.fixes) == 0 {
		return 0, fmt.Errorf("empty recorded route: %w", apperr.ErrLocationUnavailable)
	}
	if r.interval <= 0 {
		return 0, fmt.Errorf("invalid replay interval %s: %w", r.interval, apperr.ErrLocationUnavailable)
	}

	r.nextSub++
	sub := r.nextSub
	r.cancels[sub] = r.scheduler.Every(r.interval, func() bool {
		fix, ok := r.next()
		if !ok {
			if onError != nil {
				onError(fmt.Errorf("recorded route exhausted: %w", apperr.ErrLocationUnavailable))
			}
			return false
		}
		onUpdate(fix)
		return true
	})

	return sub, nil
}

func (r *ReplayProvider) Unwatch(sub Subscription) error {
	r.mu.Lock()
	cancel, ok := r.cancels[sub]
	delete(r.cancels, sub)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("subscription %d: %w", sub, apperr.ErrNotFound)
	}
	cancel()
	return nil
}

// Remaining returns the number of fixes not replayed yet.
func (r *ReplayProvider) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fixes) - r.pos
}

func (r *ReplayProvider) next() (Fix, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.fixes) {
		return Fix{}, false
	}
	fix := r.fixes[r.pos]
	r.pos++
	return fix, true
}

// ReadFixesCSV reads "lat,lng[,accuracy]" records. A first line that does not
// parse as numbers is treated as a header and skipped.
func ReadFixesCSV(reader io.Reader) ([]Fix, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.Comment = '#'

	var fixes []Fix
	line := 0
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		fix, err := parseFixRecord(record)
		if err != nil {
			if line == 1 {
				log.Tracef("skipping csv header: %s", strings.Join(record, ","))
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fixes = append(fixes, fix)
	}

	return fixes, nil
}

func parseFixRecord(record []string) (Fix, error) {
	if len(record) < 2 {
		return Fix{}, fmt.Errorf("record [%s] has less than 2 fields", strings.Join(record, ","))
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	if err != nil {
		return Fix{}, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return Fix{}, fmt.Errorf("parse lng: %w", err)
	}

	fix := Fix{Point: geo.NewGeoPoint(lat, lng)}
	if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
		fix.Accuracy, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return Fix{}, fmt.Errorf("parse accuracy: %w", err)
		}
	}

	return fix, nil
}
