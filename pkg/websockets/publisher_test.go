package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/chris/pi-settlement/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConnections struct {
	mock.Mock
}

func (m *mockConnections) AddConnection(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockConnections) RemoveConnection(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockConnections) GetAllConnections(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

type mockAPIGateway struct {
	mock.Mock
}

func (m *mockAPIGateway) PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	args := m.Called(ctx, *in.ConnectionId)
	out, _ := args.Get(0).(*apigatewaymanagementapi.PostToConnectionOutput)
	return out, args.Error(1)
}

func TestSettlementMessage(t *testing.T) {
	fee := decimal.RequireFromString("49")
	msg := SettlementMessage(&models.Settlement{PaymentId: "pay-1", Txid: "tx-1", Purpose: models.PurposePaymentLink, Amount: decimal.NewFromInt(50), MerchantAmount: &fee})

	assert.Equal(t, MessageTypeEarningCredited, msg.Type)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"merchant_amount":"49"`)

	assert.Equal(t, MessageTypeSubscriptionActivated, SettlementMessage(&models.Settlement{Purpose: models.PurposeSubscription}).Type)
	assert.Equal(t, MessageTypeOrderPaid, SettlementMessage(&models.Settlement{Purpose: models.PurposeOrder}).Type)
}

func TestPublish(t *testing.T) {
	t.Run("Removes Stale Connections", func(t *testing.T) {
		store := new(mockConnections)
		client := new(mockAPIGateway)
		store.On("GetAllConnections", mock.Anything).Return([]string{"live", "gone", "broken"}, nil)
		store.On("RemoveConnection", mock.Anything, "gone").Return(nil).Once()
		client.On("PostToConnection", mock.Anything, "live").Return(&apigatewaymanagementapi.PostToConnectionOutput{}, nil)
		client.On("PostToConnection", mock.Anything, "gone").Return(nil, &apigwtypes.GoneException{})
		client.On("PostToConnection", mock.Anything, "broken").Return(nil, errors.New("throttled"))

		p := NewPublisherWithClient(store, client, nil)
		err := p.Publish(context.Background(), Message{Type: MessageTypeOrderPaid})

		assert.NoError(t, err)
		store.AssertExpectations(t)
		client.AssertExpectations(t)
	})

	t.Run("Connection Listing Fails", func(t *testing.T) {
		store := new(mockConnections)
		store.On("GetAllConnections", mock.Anything).Return(nil, errors.New("scan failed"))

		err := NewPublisherWithClient(store, new(mockAPIGateway), nil).Publish(context.Background(), Message{})

		assert.Error(t, err)
	})
}

func TestHub(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), Message{Type: MessageTypeOrderPaid, Payload: SettlementPayload{PaymentID: "pay-1"}}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"orderPaid"`)
	assert.Contains(t, string(data), `"payment_id":"pay-1"`)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	hub := NewHub(nil)
	// No writer is started, so nothing drains the queue.
	hub.add(<-serverConns)
	require.Equal(t, 1, hub.Count())

	msg := Message{Type: MessageTypeOrderPaid, Payload: SettlementPayload{PaymentID: "pay-1"}}
	start := time.Now()
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, hub.Publish(context.Background(), msg))
	}
	assert.Equal(t, 1, hub.Count())

	require.NoError(t, hub.Publish(context.Background(), msg))
	assert.Less(t, time.Since(start), writeWait)
	assert.Zero(t, hub.Count())
}
