package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/mailer"
    "github.com/iliyamo/fest-registration/internal/metrics"
)

// Consumer drains the notification queue and mails each notice.
type Consumer struct {
    url     string
    sender  mailer.Sender
    log     *zap.Logger
    metrics *metrics.Metrics
}

// NewConsumer returns a consumer for the broker at url delivering via sender.
func NewConsumer(url string, sender mailer.Sender, log *zap.Logger, m *metrics.Metrics) *Consumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, sender: sender, log: log, metrics: m}
}

// Run connects to RabbitMQ and consumes notices until ctx is cancelled.  It
// reconnects with exponential backoff and only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("notice-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("notice-consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        c.log.Warn("notice-consumer: set QoS failed", zap.Error(err))
    }
    if err := declare(ch); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.settle(ctx, ch, d, c.handleMessage(ctx, d.Body))
        }
    }
}

// settle acks, retries, parks or drops one delivery depending on how
// handling went.  A failed republish leaves the message on the main queue.
func (c *Consumer) settle(ctx context.Context, ch *amqp.Channel, d amqp.Delivery, err error) {
    attempt := attemptOf(d.Headers)
    switch decide(err, attempt) {
    case settleAck:
        _ = d.Ack(false)
    case settleDrop:
        c.log.Error("notice-consumer: dropping undeliverable notice", zap.Error(err))
        _ = d.Nack(false, false)
    case settleRetry:
        delay := retryDelay(attempt)
        c.log.Warn("notice-consumer: send failed, will retry",
            zap.Error(err), zap.Int("attempt", attempt), zap.Duration("retry_in", delay))
        if perr := republish(ctx, ch, RetryQueue, d, attempt+1, delay); perr != nil {
            c.log.Error("notice-consumer: schedule retry failed", zap.Error(perr))
            _ = d.Nack(false, true)
            return
        }
        _ = d.Ack(false)
    case settlePark:
        c.log.Error("notice-consumer: giving up on notice",
            zap.Error(err), zap.Int("attempts", attempt))
        if perr := republish(ctx, ch, DeadQueue, d, attempt, 0); perr != nil {
            c.log.Error("notice-consumer: park notice failed", zap.Error(perr))
            _ = d.Nack(false, true)
            return
        }
        _ = d.Ack(false)
    }
}

type settlement int

const (
    settleAck settlement = iota
    settleDrop
    settleRetry
    settlePark
)

// decide maps a handling result to a settlement.  Malformed notices are
// dropped at once; send failures are retried until MaxDeliveryAttempts.
func decide(err error, attempt int) settlement {
    switch {
    case err == nil:
        return settleAck
    case isPermanent(err):
        return settleDrop
    case attempt >= MaxDeliveryAttempts:
        return settlePark
    }
    return settleRetry
}

// retryDelay is 30s doubled per attempt, capped at 15m.
func retryDelay(attempt int) time.Duration {
    d := 30 * time.Second
    for i := 1; i < attempt && d < 15*time.Minute; i++ {
        d *= 2
    }
    if d > 15*time.Minute {
        d = 15 * time.Minute
    }
    return d
}

// attemptOf reads the attempt counter; a fresh notice is attempt 1.
func attemptOf(h amqp.Table) int {
    var n int
    switch v := h[attemptHeader].(type) {
    case int:
        n = v
    case int32:
        n = int(v)
    case int64:
        n = int(v)
    }
    if n < 1 {
        return 1
    }
    return n
}

func republish(ctx context.Context, ch *amqp.Channel, queue string, d amqp.Delivery, attempt int, ttl time.Duration) error {
    pub := amqp.Publishing{
        ContentType:  d.ContentType,
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Headers:      amqp.Table{attemptHeader: int32(attempt)},
        Body:         d.Body,
    }
    if ttl > 0 {
        pub.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
    }
    return ch.PublishWithContext(ctx, "", queue, false, false, pub)
}

// permanentError marks a notice that can never be delivered as sent.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func isPermanent(err error) bool {
    var p permanentError
    return errors.As(err, &p)
}

// handleMessage renders and sends one notice.
func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
    var n RegistrationNotification
    if err := json.Unmarshal(body, &n); err != nil {
        return permanentError{fmt.Errorf("unmarshal: %w", err)}
    }
    if strings.TrimSpace(n.Email) == "" {
        return permanentError{errors.New("notice without recipient")}
    }
    e, err := mailer.Render(n.Template, n.Email, n.Vars)
    if err != nil {
        return permanentError{err}
    }
    err = c.sender.Send(ctx, e)
    c.metrics.ObserveNotification(n.Template+"_mail", err)
    if err != nil {
        return fmt.Errorf("send %s to %s: %w", n.Template, n.Email, err)
    }
    c.log.Info("notice sent", zap.String("template", n.Template), zap.String("group_id", n.Vars["group_id"]))
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
