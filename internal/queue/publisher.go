package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// dialTimeout bounds the broker connect so a down broker cannot stall a
// review request for the library default of 30s.
const dialTimeout = 3 * time.Second

// Publisher sends RegistrationNotification messages to the notification
// queue.  It dials per publish; review decisions are rare enough that a
// long-lived channel is not worth the reconnect bookkeeping.
type Publisher struct {
    url string
    log *zap.Logger
    now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log, now: time.Now}
}

// SendApprovalNotice publishes one persistent notice.  Any error is logged
// and returned so the caller can decide to ignore it.
func (p *Publisher) SendApprovalNotice(ctx context.Context, email, templateKey string, vars map[string]string) error {
    body, err := json.Marshal(RegistrationNotification{
        Email:       email,
        Template:    templateKey,
        Vars:        vars,
        PublishedAt: p.now().UTC().Format(time.RFC3339),
    })
    if err != nil {
        p.log.Error("rabbitmq: marshal notice failed", zap.Error(err))
        return err
    }

    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(dialTimeout),
    })
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if err := declare(ch); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    p.now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        NotificationQueue, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.String("template", templateKey), zap.Error(err))
        return err
    }
    return nil
}

// declare makes sure the notification, retry and dead queues exist.  The
// retry queue has no consumer; expired messages go back to
// NotificationQueue through the default exchange.
func declare(ch *amqp.Channel) error {
    queues := []struct {
        name string
        args amqp.Table
    }{
        {NotificationQueue, nil},
        {RetryQueue, amqp.Table{
            "x-dead-letter-exchange":    "",
            "x-dead-letter-routing-key": NotificationQueue,
        }},
        {DeadQueue, nil},
    }
    for _, q := range queues {
        if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
            return fmt.Errorf("declare %s: %w", q.name, err)
        }
    }
    return nil
}
