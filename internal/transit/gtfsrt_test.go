package transit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/randytsao24/departures/internal/models"
	"github.com/randytsao24/departures/internal/transit"
)

func tripEntity(id, route string, direction uint32, rel gtfs.TripDescriptor_ScheduleRelationship, stopID string, at time.Time, delay *int32) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfs.TripUpdate{
			Trip: &gtfs.TripDescriptor{
				TripId:               proto.String(id),
				RouteId:              proto.String(route),
				DirectionId:          proto.Uint32(direction),
				StartDate:            proto.String(at.Format("20060102")),
				ScheduleRelationship: rel.Enum(),
			},
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
				{
					StopId: proto.String(stopID),
					Departure: &gtfs.TripUpdate_StopTimeEvent{
						Time:  proto.Int64(at.Unix()),
						Delay: delay,
					},
				},
			},
		},
	}
}

func serveFeed(t *testing.T, feed *gtfs.FeedMessage) *httptest.Server {
	t.Helper()
	body, err := proto.Marshal(feed)
	require.NoError(t, err)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "feed-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(body)
	}))
}

func TestGTFSRTSourceFetch(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(base.Unix())),
		},
		Entity: []*gtfs.FeedEntity{
			tripEntity("t1", "A", 0, gtfs.TripDescriptor_SCHEDULED, "S1", base.Add(9*time.Minute), proto.Int32(60)),
			tripEntity("t2", "B", 1, gtfs.TripDescriptor_ADDED, "S1", base.Add(3*time.Minute), nil),
			tripEntity("t3", "A", 1, gtfs.TripDescriptor_CANCELED, "S2", base.Add(5*time.Minute), nil),
			tripEntity("t4", "A", 0, gtfs.TripDescriptor_SCHEDULED, "S2", base.Add(7*time.Minute), nil),
		},
	}
	srv := serveFeed(t, feed)
	defer srv.Close()

	src := transit.NewGTFSRTSource(srv.URL, "feed-key", time.Second, time.UTC, transit.WithFeedClock(func() time.Time { return base }))
	queries := []models.StopQuery{{StopID: "S1"}, {StopID: "S2", PatternID: "A:1"}}
	resp, err := src.Fetch(context.Background(), queries)
	require.NoError(t, err)
	assert.False(t, resp.HasErrors())

	s1 := resp.Data["stop0"].StoptimesWithoutPatterns
	require.Len(t, s1, 2)
	assert.Equal(t, "B", s1[0].Trip.RouteShortName, "stop times are ordered by departure")
	assert.Equal(t, models.StateAdded, s1[0].RealtimeState)
	assert.Equal(t, models.StateUpdated, s1[1].RealtimeState)
	assert.Equal(t, 12*3600+9*60, s1[1].RealtimeDeparture)
	assert.Equal(t, 12*3600+8*60, s1[1].ScheduledDeparture)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(), s1[1].ServiceDay)

	s2 := resp.Data["stop1"].StopTimesForPattern
	require.Len(t, s2, 1, "pattern A:1 excludes direction 0")
	assert.Equal(t, models.StateCanceled, s2[0].RealtimeState)

	deps := transit.Aggregate(resp, queries, base)
	assert.Equal(t, []int{3, 5, 9}, minutes(deps))
}

func TestGTFSRTSourceSkipsPassedEventsBeforeCapping(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := &gtfs.FeedMessage{Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")}}
	for i := 0; i < 6; i++ {
		id := "past" + strconv.Itoa(i)
		at := base.Add(-time.Duration(10+i) * time.Minute)
		feed.Entity = append(feed.Entity, tripEntity(id, "R", 0, gtfs.TripDescriptor_SCHEDULED, "S", at, nil))
	}
	feed.Entity = append(feed.Entity, tripEntity("next", "R", 0, gtfs.TripDescriptor_SCHEDULED, "S", base.Add(10*time.Minute), nil))

	srv := serveFeed(t, feed)
	defer srv.Close()

	src := transit.NewGTFSRTSource(srv.URL, "feed-key", time.Second, time.UTC, transit.WithFeedClock(func() time.Time { return base }))
	for _, queries := range [][]models.StopQuery{
		{{StopID: "S", PatternID: "R"}},
		{{StopID: "S"}},
	} {
		resp, err := src.Fetch(context.Background(), queries)
		require.NoError(t, err)
		assert.Len(t, resp.StopTimes(0, queries[0]), 1)
		assert.Equal(t, []int{10}, minutes(transit.Aggregate(resp, queries, base)), "queries %v", queries)
	}
}

func TestGTFSRTSourceBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := transit.NewGTFSRTSource(srv.URL, "", time.Second, time.UTC)
	_, err := src.Fetch(context.Background(), []models.StopQuery{{StopID: "S1"}})
	var statusErr *transit.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Temporary())
}
