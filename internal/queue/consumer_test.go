package queue

import (
    "context"
    "encoding/json"
    "errors"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/mailer"
)

type fakeSender struct {
    sent []mailer.Email
    err  error
}

func (f *fakeSender) Send(_ context.Context, e mailer.Email) error {
    if f.err != nil {
        return f.err
    }
    f.sent = append(f.sent, e)
    return nil
}

func notice(t *testing.T, n RegistrationNotification) []byte {
    t.Helper()
    b, err := json.Marshal(n)
    require.NoError(t, err)
    return b
}

func TestHandleMessageSendsRenderedMail(t *testing.T) {
    s := &fakeSender{}
    c := NewConsumer("", s, zap.NewNop(), nil)

    err := c.handleMessage(context.Background(), notice(t, RegistrationNotification{
        Email:    "lead@example.com",
        Template: "registration_approved",
        Vars:     map[string]string{"group_id": "GRP-1A2B3C", "name": "Lead"},
    }))
    require.NoError(t, err)
    require.Len(t, s.sent, 1)
    assert.Equal(t, "lead@example.com", s.sent[0].To)
    assert.Contains(t, s.sent[0].Subject, "GRP-1A2B3C")
}

func TestHandleMessageRejectsBadPayloads(t *testing.T) {
    c := NewConsumer("", &fakeSender{}, zap.NewNop(), nil)

    require.Error(t, c.handleMessage(context.Background(), []byte("{not json")))
    require.Error(t, c.handleMessage(context.Background(), notice(t, RegistrationNotification{Template: "registration_approved"})))

    err := c.handleMessage(context.Background(), notice(t, RegistrationNotification{Email: "a@example.com", Template: "unknown"}))
    require.ErrorIs(t, err, mailer.ErrUnknownTemplate)
}

func TestHandleMessagePropagatesSendFailure(t *testing.T) {
    boom := errors.New("smtp down")
    c := NewConsumer("", &fakeSender{err: boom}, zap.NewNop(), nil)

    err := c.handleMessage(context.Background(), notice(t, RegistrationNotification{
        Email: "a@example.com", Template: "registration_rejected",
    }))
    require.ErrorIs(t, err, boom)
    assert.False(t, isPermanent(err))
}

func TestBadPayloadsArePermanent(t *testing.T) {
    c := NewConsumer("", &fakeSender{}, zap.NewNop(), nil)
    for _, body := range [][]byte{
        []byte("{not json"),
        notice(t, RegistrationNotification{Template: "registration_approved"}),
        notice(t, RegistrationNotification{Email: "a@example.com", Template: "unknown"}),
    } {
        assert.True(t, isPermanent(c.handleMessage(context.Background(), body)), string(body))
    }
}

func TestDecideSettlement(t *testing.T) {
    transient := errors.New("smtp 421")
    tests := []struct {
        name    string
        err     error
        attempt int
        want    settlement
    }{
        {"sent", nil, 1, settleAck},
        {"malformed", permanentError{errors.New("bad json")}, 1, settleDrop},
        {"first failure", transient, 1, settleRetry},
        {"last retry", transient, MaxDeliveryAttempts - 1, settleRetry},
        {"out of attempts", transient, MaxDeliveryAttempts, settlePark},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, decide(tt.err, tt.attempt))
        })
    }
}

func TestRetryDelayBackoff(t *testing.T) {
    assert.Equal(t, 30*time.Second, retryDelay(1))
    assert.Equal(t, time.Minute, retryDelay(2))
    assert.Equal(t, 4*time.Minute, retryDelay(4))
    assert.Equal(t, 15*time.Minute, retryDelay(20))
}

func TestAttemptOfHeader(t *testing.T) {
    assert.Equal(t, 1, attemptOf(nil))
    assert.Equal(t, 1, attemptOf(amqp.Table{attemptHeader: "x"}))
    assert.Equal(t, 3, attemptOf(amqp.Table{attemptHeader: int32(3)}))
    assert.Equal(t, 4, attemptOf(amqp.Table{attemptHeader: int64(4)}))
}
