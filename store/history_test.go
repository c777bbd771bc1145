package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDayBounds(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5", 5*3600)
	event := time.Date(2026, 3, 14, 15, 9, 26, 0, loc)
	start, end := DayBounds(event)

	if !start.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, loc)) {
		t.Fatalf("start: got %v", start)
	}
	if !end.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, loc)) {
		t.Fatalf("end: got %v", end)
	}
	if start.Location() != loc {
		t.Fatalf("location not preserved: %v", start.Location())
	}
}

func TestDayBounds_NearMidnight(t *testing.T) {
	t.Parallel()

	event := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	start, end := DayBounds(event)
	if !start.Before(event) || !end.After(event) {
		t.Fatalf("event %v outside window [%v, %v)", event, start, end)
	}
	next := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if next.Before(end) {
		t.Fatalf("next midnight %v inside window ending %v", next, end)
	}
}

func stageValue(t *testing.T, stage bson.D, key string) interface{} {
	t.Helper()
	if len(stage) != 1 || stage[0].Key != key {
		t.Fatalf("expected stage %q, got %+v", key, stage)
	}
	return stage[0].Value
}

func TestHistoriesPipeline_PageWindow(t *testing.T) {
	t.Parallel()

	userID := primitive.NewObjectID()
	pipeline := historiesPipeline(userID, 2, 15)

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	if match["user"] != userID {
		t.Fatalf("match user: got %v", match["user"])
	}

	// Page-based window: page 2 with limit 15 slices [30, 45).
	project := stageValue(t, pipeline[1], "$project").(bson.M)
	slice := project["all"].(bson.M)["$slice"].(bson.A)
	if slice[1] != int64(30) || slice[2] != int64(15) {
		t.Fatalf("slice window: got %v", slice)
	}

	last := pipeline[len(pipeline)-1]
	sort := stageValue(t, last, "$sort").(bson.M)
	if sort["date"] != -1 {
		t.Fatalf("final sort: got %v", sort)
	}
}

func TestSameDayPipeline_Window(t *testing.T) {
	t.Parallel()

	userID := primitive.NewObjectID()
	start, end := DayBounds(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	pipeline := sameDayPipeline(userID, start, end)

	window := stageValue(t, pipeline[2], "$match").(bson.M)["all.date"].(bson.M)
	if window["$gte"] != start || window["$lt"] != end {
		t.Fatalf("window: got %v", window)
	}
}

func TestRecentlyPlayedPipeline_TakesFirstTenThenSorts(t *testing.T) {
	t.Parallel()

	pipeline := recentlyPlayedPipeline(primitive.NewObjectID())

	slice := stageValue(t, pipeline[1], "$project").(bson.M)["myHistory"].(bson.M)["$slice"].(bson.A)
	if slice[1] != 10 {
		t.Fatalf("slice size: got %v", slice[1])
	}

	sortArray := stageValue(t, pipeline[2], "$project").(bson.M)["histories"].(bson.M)["$sortArray"].(bson.M)
	if sortArray["sortBy"].(bson.M)["date"] != -1 {
		t.Fatalf("sortBy: got %v", sortArray["sortBy"])
	}
}
