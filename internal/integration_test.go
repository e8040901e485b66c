package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-scheduler-backend/config"
	"event-scheduler-backend/internal/api"
	"event-scheduler-backend/internal/db"
	"event-scheduler-backend/internal/schedule"
	"event-scheduler-backend/internal/seed"
	"event-scheduler-backend/internal/store"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(allocationID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, allocationID)
}

// TestScheduleLifecycle seeds the sample schedule, inspects its conflicts over
// HTTP, books a free resource and removes an event, checking the derived
// reports at each step.
func TestScheduleLifecycle(t *testing.T) {
	ctx := context.Background()

	// --- Test Setup ---
	testDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	cfg := config.Default()
	cfg.Server.CacheTTLSeconds = 30
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	appStore := store.NewGormStore(testDB)
	svc := schedule.NewService(&cfg.Scheduler, appStore)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)
	router := api.NewRouter(&cfg.Server, svc, appStore, nil)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, _ := http.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	now := time.Date(2030, time.March, 3, 12, 0, 0, 0, time.UTC)
	data, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Apply(ctx, appStore, data, now, svc.Location())
	require.NoError(t, err)

	// --- Step 1: the seeded schedule has two conflicts on Conference Room A ---
	w := do(http.MethodGet, "/api/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conflicts []schedule.Conflict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflicts))
	require.Len(t, conflicts, 2)
	assert.Equal(t, "Python Workshop", conflicts[0].Event1.Title)
	assert.Equal(t, "Data Science Seminar", conflicts[0].Event2.Title)
	assert.Equal(t, "Web Development Class", conflicts[1].Event1.Title)
	assert.Equal(t, "Database Workshop", conflicts[1].Event2.Title)

	// --- Step 2: book the laptop for the seminar ---
	resources, err := svc.ListResources(ctx)
	require.NoError(t, err)
	laptop := resources[3]
	require.Equal(t, "Laptop with HDMI", laptop.Name)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	byTitle := make(map[string]int64)
	for _, e := range events {
		byTitle[e.Title] = e.ID
	}

	w = do(http.MethodPost, "/api/events/"+itoa(byTitle["Data Science Seminar"])+"/allocations",
		map[string]interface{}{"resource_ids": []int64{laptop.ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result schedule.AllocationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	created := result.Created()
	require.Len(t, created, 1)
	assert.Equal(t, []int64{created[0].ID}, notifier.ids)

	// The laptop is now busy 10-12 and also held 14-16; 9-11 must clash.
	w = do(http.MethodPost, "/api/events/"+itoa(byTitle["Python Workshop"])+"/allocations",
		map[string]interface{}{"resource_ids": []int64{laptop.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, schedule.OutcomeConflict, result.Outcomes[0].Status)

	// --- Step 3: utilization for the seeded day ---
	w = do(http.MethodGet, "/api/reports/utilization?start=2030-03-04&end=2030-03-04", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var util struct {
		Utilization []schedule.Utilization `json:"utilization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &util))
	require.Len(t, util.Utilization, 4)
	assert.Equal(t, 8.0, util.Utilization[0].TotalHours)
	assert.Equal(t, 4.0, util.Utilization[3].TotalHours)

	// --- Step 4: deleting an event removes its allocations and its conflicts ---
	w = do(http.MethodDelete, "/api/events/"+itoa(byTitle["Database Workshop"]), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(http.MethodGet, "/api/conflicts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflicts))
	require.Len(t, conflicts, 1)

	w = do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_events":3,"total_resources":4,"total_allocations":7}`, w.Body.String())
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
