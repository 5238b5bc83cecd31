package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/model"
	"github.com/lumenpath/investigator/internal/orchestrator"
	"github.com/lumenpath/investigator/internal/providers/fake"
)

func startEmbeddedServer(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded nats server never became ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

func TestPublisher_RelayPublishesEventsUntilFinal(t *testing.T) {
	url := startEmbeddedServer(t)

	pub, err := Connect(url, "investigations", nil)
	require.NoError(t, err)
	defer pub.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	const imgURL = "https://example.com/direct.jpg"
	query := "Donald Trump Kanye West"
	search := &fake.Search{Responses: map[string][]model.ImageCandidate{
		query: {{ImageURL: imgURL, ContextURL: imgURL + "-ctx"}},
	}}
	recognizer := &fake.Recognizer{Detections: map[string][]model.DetectedCelebrity{
		imgURL: {{Name: "Donald Trump", Confidence: 95}, {Name: "Kanye West", Confidence: 88}},
	}}
	o := orchestrator.New(search, &fake.Fetcher{}, &fake.Scene{}, recognizer, nil)
	runID, err := o.Start(context.Background(), "Donald Trump", "Kanye West", orchestrator.Options{})
	require.NoError(t, err)

	subject := "investigations." + runID
	msgs := make(chan *nats.Msg, 32)
	natsSub, err := sub.ChanSubscribe(subject, msgs)
	require.NoError(t, err)
	defer natsSub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Relay(ctx, o, runID))

	sawFinal := false
	for !sawFinal {
		select {
		case msg := <-msgs:
			var ev events.Event
			require.NoError(t, json.Unmarshal(msg.Data, &ev))
			if ev.Type == events.TypeFinal || ev.Type == events.TypeNoPath {
				sawFinal = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for terminal event on subject")
		}
	}
}

func TestPublisher_RelayUnknownRunReturnsError(t *testing.T) {
	url := startEmbeddedServer(t)

	pub, err := Connect(url, "investigations", nil)
	require.NoError(t, err)
	defer pub.Close()

	o := orchestrator.New(&fake.Search{}, &fake.Fetcher{}, &fake.Scene{}, &fake.Recognizer{}, nil)
	err = pub.Relay(context.Background(), o, "missing")
	require.Error(t, err)
}
