package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/reminder-bot/internal/persistence"
)

func TestMaterializer_MaterializeTemplate(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)
	windowStart := anchor
	windowEnd := anchor.AddDate(0, 0, 6)

	newDailyTemplate := func(owner string) persistence.Template {
		return persistence.Template{
			ID:          "template-1",
			OwnerID:     owner,
			Description: "Take medication",
			AnchorTime:  anchor,
			Frequency:   "daily",
			Interval:    1,
		}
	}

	t.Run("expands a daily template over the window", func(t *testing.T) {
		t.Parallel()

		templates := newTemplateRepoStub(newDailyTemplate("user-1"))
		instances := newInstanceRepoStub()
		materializer := NewMaterializer(templates, instances, newUserRepoStub(), sequentialIDs("instance"), fixedClock(anchor), nil)

		created, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart, windowEnd)
		if err != nil {
			t.Fatalf("MaterializeTemplate failed: %v", err)
		}
		if created != 7 {
			t.Fatalf("created = %d, want 7 daily occurrences", created)
		}

		stored, err := instances.ListInstances(context.Background(), persistence.InstanceFilter{OwnerID: "user-1"})
		if err != nil {
			t.Fatalf("ListInstances failed: %v", err)
		}
		if len(stored) != 7 {
			t.Fatalf("stored = %d, want 7", len(stored))
		}
		if stored[0].TemplateID == nil || *stored[0].TemplateID != "template-1" {
			t.Errorf("TemplateID = %v, want template-1", stored[0].TemplateID)
		}
		if !stored[0].EventTime.Equal(anchor) {
			t.Errorf("first occurrence = %v, want %v", stored[0].EventTime, anchor)
		}
		if stored[0].Description != "Take medication" {
			t.Errorf("Description = %q, want the template description", stored[0].Description)
		}
	})

	t.Run("a second run over the same window creates nothing", func(t *testing.T) {
		t.Parallel()

		templates := newTemplateRepoStub(newDailyTemplate("user-1"))
		instances := newInstanceRepoStub()
		materializer := NewMaterializer(templates, instances, newUserRepoStub(), sequentialIDs("instance"), fixedClock(anchor), nil)

		if _, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart, windowEnd); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		created, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart, windowEnd)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if created != 0 {
			t.Fatalf("second run created = %d, want 0", created)
		}
	})

	t.Run("overlapping windows only add the new occurrences", func(t *testing.T) {
		t.Parallel()

		templates := newTemplateRepoStub(newDailyTemplate("user-1"))
		instances := newInstanceRepoStub()
		materializer := NewMaterializer(templates, instances, newUserRepoStub(), sequentialIDs("instance"), fixedClock(anchor), nil)

		if _, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart, windowEnd); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		created, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart.AddDate(0, 0, 3), windowEnd.AddDate(0, 0, 3))
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if created != 3 {
			t.Fatalf("second run created = %d, want the 3 new days", created)
		}
	})

	t.Run("unknown templates map to ErrNotFound", func(t *testing.T) {
		t.Parallel()

		materializer := NewMaterializer(newTemplateRepoStub(), newInstanceRepoStub(), newUserRepoStub(), nil, nil, nil)

		_, err := materializer.MaterializeTemplate(context.Background(), "missing", windowStart, windowEnd)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("bad recurrence rules map to ErrInvalidTemplate", func(t *testing.T) {
		t.Parallel()

		template := newDailyTemplate("user-1")
		template.Frequency = "hourly"
		materializer := NewMaterializer(newTemplateRepoStub(template), newInstanceRepoStub(), newUserRepoStub(), nil, nil, nil)

		_, err := materializer.MaterializeTemplate(context.Background(), "template-1", windowStart, windowEnd)
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Fatalf("error = %v, want ErrInvalidTemplate", err)
		}
	})
}

func TestMaterializer_MaterializeAll(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.September, 2, 12, 0, 0, 0, time.UTC)

	t.Run("expands every active template in its owner's wall clock", func(t *testing.T) {
		t.Parallel()

		// 16:00 UTC is 01:00 of the next day in Tokyo.
		now := time.Date(2026, time.September, 2, 16, 0, 0, 0, time.UTC)
		users := newUserRepoStub(
			persistence.User{ID: "user-1", Phone: "1", Timezone: "UTC"},
			persistence.User{ID: "user-2", Phone: "2", Timezone: "Asia/Tokyo"},
		)
		templates := newTemplateRepoStub(
			persistence.Template{
				ID: "t-utc", OwnerID: "user-1", Description: "utc task",
				AnchorTime: time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC),
				Frequency:  "daily", Interval: 1,
			},
			persistence.Template{
				ID: "t-tokyo", OwnerID: "user-2", Description: "tokyo task",
				AnchorTime: time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC),
				Frequency:  "daily", Interval: 1,
			},
		)
		instances := newInstanceRepoStub()
		materializer := NewMaterializer(templates, instances, users, sequentialIDs("instance"), fixedClock(now), nil)

		report, err := materializer.MaterializeAll(context.Background(), 7)
		if err != nil {
			t.Fatalf("MaterializeAll failed: %v", err)
		}
		if report.Templates != 2 {
			t.Errorf("Templates = %d, want 2", report.Templates)
		}
		// Each daily template yields one occurrence per day across an
		// 8-day inclusive window, starting from the owner's local today.
		if report.Created != 16 {
			t.Errorf("Created = %d, want 16", report.Created)
		}

		tokyoRows, err := instances.ListInstances(context.Background(), persistence.InstanceFilter{OwnerID: "user-2"})
		if err != nil {
			t.Fatalf("ListInstances failed: %v", err)
		}
		// It is already September 3rd in Tokyo, so the first generated
		// occurrence is the 3rd, not the 2nd.
		if len(tokyoRows) == 0 || !tokyoRows[0].EventTime.Equal(time.Date(2026, time.September, 3, 8, 0, 0, 0, time.UTC)) {
			t.Errorf("first tokyo occurrence = %v, want 2026-09-03 08:00", tokyoRows[0].EventTime)
		}
	})

	t.Run("skips templates whose owner cannot be loaded", func(t *testing.T) {
		t.Parallel()

		templates := newTemplateRepoStub(persistence.Template{
			ID: "t-orphan", OwnerID: "ghost", Description: "orphan",
			AnchorTime: now, Frequency: "daily", Interval: 1,
		})
		materializer := NewMaterializer(templates, newInstanceRepoStub(), newUserRepoStub(), sequentialIDs("instance"), fixedClock(now), nil)

		report, err := materializer.MaterializeAll(context.Background(), 7)
		if err != nil {
			t.Fatalf("MaterializeAll failed: %v", err)
		}
		if report.Templates != 1 || report.Created != 0 {
			t.Errorf("report = %+v, want one template, zero created", report)
		}
	})

	t.Run("one bad template does not abort the rest", func(t *testing.T) {
		t.Parallel()

		users := newUserRepoStub(persistence.User{ID: "user-1", Phone: "1", Timezone: "UTC"})
		templates := newTemplateRepoStub(
			persistence.Template{
				ID: "t-bad", OwnerID: "user-1", Description: "broken",
				AnchorTime: now, Frequency: "hourly", Interval: 1,
			},
			persistence.Template{
				ID: "t-good", OwnerID: "user-1", Description: "fine",
				AnchorTime: time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC),
				Frequency:  "daily", Interval: 1,
			},
		)
		instances := newInstanceRepoStub()
		materializer := NewMaterializer(templates, instances, users, sequentialIDs("instance"), fixedClock(now), nil)

		report, err := materializer.MaterializeAll(context.Background(), 3)
		if err != nil {
			t.Fatalf("MaterializeAll failed: %v", err)
		}
		if report.Templates != 2 {
			t.Errorf("Templates = %d, want 2", report.Templates)
		}
		if report.Created == 0 {
			t.Error("Created = 0, want occurrences from the valid template")
		}
	})
}
