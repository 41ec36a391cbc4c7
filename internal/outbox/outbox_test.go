package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes [][]kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, append([]kafka.Message(nil), msgs...))
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	return s.id, nil
}

func message(eventType string, owner int64) Message {
	return Message{
		OwnerID:       owner,
		EventType:     eventType,
		Topic:         "tracking_events",
		SchemaSubject: "tracking_events-" + eventType,
		PartitionKey:  "7",
		Payload:       json.RawMessage(`{"owner_id":7}`),
	}
}

func TestDeliverFramesBatchInOneWrite(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	err := d.deliver(context.Background(), []Message{
		message(events.TypeLogUpdated, 7),
		message(events.TypeLogUpdated, 7),
		message(events.TypeActivityCreated, 7),
	})
	require.NoError(t, err)

	require.Len(t, producer.writes, 1)
	batch := producer.writes[0]
	require.Len(t, batch, 3)
	for _, record := range batch {
		require.Equal(t, "tracking_events", record.Topic)
		require.Equal(t, []byte("7"), record.Key)
	}
	require.Equal(t, events.TypeLogUpdated, string(batch[0].Headers[0].Value))
	require.Equal(t, events.TypeActivityCreated, string(batch[2].Headers[0].Value))

	id, payload, err := DecodeWireFormat(batch[0].Value)
	require.NoError(t, err)
	require.Equal(t, 42, id)
	require.JSONEq(t, `{"owner_id":7}`, string(payload))

	require.Len(t, registry.calls, 2, "one lookup per subject")

	before := testutil.ToFloat64(schemaLookups.WithLabelValues("cache"))
	require.NoError(t, d.deliver(context.Background(), []Message{message(events.TypeLogUpdated, 7)}))
	require.Len(t, registry.calls, 2)
	require.InDelta(t, before+1, testutil.ToFloat64(schemaLookups.WithLabelValues("cache")), 0.0001)
}

func TestDeliverRejectsUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	err := d.deliver(context.Background(), []Message{message("activity.renamed", 1)})
	require.ErrorContains(t, err, "no schema metadata for event_type=activity.renamed")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverPropagatesFailures(t *testing.T) {
	d := NewDispatcher(nil, &stubProducer{}, &stubRegistry{err: errors.New("registry down")}, time.Second, 10)
	require.ErrorContains(t, d.deliver(context.Background(), []Message{message(events.TypeActivityDeleted, 1)}), "registry down")

	d = NewDispatcher(nil, &stubProducer{err: errors.New("kafka down")}, &stubRegistry{id: 3}, time.Second, 10)
	require.ErrorContains(t, d.deliver(context.Background(), []Message{message(events.TypeActivityDeleted, 1)}), "kafka down")
}

func TestDecodeWireFormatRejectsUnframed(t *testing.T) {
	_, _, err := DecodeWireFormat([]byte(`{"a":1}`))
	require.Error(t, err)
	_, _, err = DecodeWireFormat([]byte{0, 0, 1})
	require.Error(t, err)
}

func TestNewKafkaProducerOptions(t *testing.T) {
	p := NewKafkaProducer([]string{"localhost:9092"}, WithBatchTimeout(5*time.Millisecond), WithTopicCreation())
	require.Equal(t, 5*time.Millisecond, p.writer.BatchTimeout)
	require.True(t, p.writer.AllowAutoTopicCreation)
	require.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	require.Empty(t, p.writer.Topic, "each message carries its own topic")
	require.NoError(t, p.Close())
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, 5, time.Minute)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(10))
}

func TestSchemaRegistryReusesMatchingVersion(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			require.Equal(t, "/subjects/tracking_events-activity.created/versions/latest", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 11, "schema": activityCreatedSchema})
		default:
			posts++
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL+"/").EnsureSchema(context.Background(), "tracking_events-activity.created", activityCreatedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.Zero(t, posts)
}

func TestSchemaRegistryRegistersMissingSubject(t *testing.T) {
	var registered map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, "application/vnd.schemaregistry.v1+json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &registered))
		_, _ = io.WriteString(w, `{"id":12}`)
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "s", logUpdatedSchema)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	require.Equal(t, "JSON", registered["schemaType"])
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream")
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "s", "{}")
	require.ErrorContains(t, err, "upstream")

	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, http.StatusBadGateway, regErr.Status)
}

func TestSchemaRegistryDecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error_code":409,"message":"incompatible schema"}`)
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "tracking_events-activity.deleted", activityDeletedSchema)
	var regErr *RegistryError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, 409, regErr.Code)
	require.Equal(t, "incompatible schema", regErr.Message)
	require.ErrorContains(t, err, "register tracking_events-activity.deleted")
}

func TestSchemasAreValidJSON(t *testing.T) {
	for eventType, schema := range schemaCatalog {
		var doc map[string]any
		require.NoErrorf(t, json.Unmarshal([]byte(schema), &doc), eventType)
		require.Equal(t, "object", doc["type"])
	}
}
