package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jhoicas/pdv-nfce/internal/application/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []events.Envelope
	err error
}

func (r *recorder) Publish(_ context.Context, env events.Envelope) error {
	r.got = append(r.got, env)
	return r.err
}

func TestNew(t *testing.T) {
	env, err := events.New(events.TypeStockLow, "biz-1", "p-1", events.StockPayload{ProductID: "p-1", Stock: 1, MinStock: 5})
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, events.TopicStockLow, env.Topic())
	assert.Equal(t, []byte("biz-1"), env.PartitionKey())

	var p events.StockPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 5, p.MinStock)
}

func TestNew_TipoDesconocido(t *testing.T) {
	_, err := events.New("Foo", "biz-1", "", nil)
	assert.Error(t, err)
}

func TestMulti_ReparteYJuntaErrores(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("broker caído")}
	env, err := events.New(events.TypeSaleCompleted, "biz-1", "s-1", events.SaleCompletedPayload{SaleID: "s-1"})
	require.NoError(t, err)

	err = events.Multi{ok, bad, events.Noop{}}.Publish(context.Background(), env)
	assert.ErrorContains(t, err, "broker caído")
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)
}
