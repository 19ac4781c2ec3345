// Package events provides RabbitMQ publishing for warehouse domain events
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// Queue names for warehouse events
// 倉庫イベントのキュー名
const (
	QueueMovementRecorded = "stock.movement.recorded"
	QueueOccupancyChanged = "cell.occupancy.changed"
)

// RabbitMQPublisher implements the EventPublisher interface on a shared
// connection. Publish failures are returned to the caller, which logs and
// continues: events are best-effort notifications, never part of the
// transaction.
// 共有接続上のEventPublisherインターフェース実装。発行失敗は呼び出し側へ
// 返され、呼び出し側はログのみで処理を継続する。イベントはベストエフォートの
// 通知であり、トランザクションの一部ではない。
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// インターフェースを実装することを明示
var _ warehouse.EventPublisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher connects to the broker and declares the warehouse
// queues. Queues are durable so events survive broker restarts.
// ブローカーへ接続し倉庫キューを宣言する。キューは永続化され、
// ブローカー再起動後もイベントが保持される。
func NewRabbitMQPublisher(url string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗しました: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("RabbitMQチャネル作成に失敗しました: %w", err)
	}

	for _, queue := range []string{QueueMovementRecorded, QueueOccupancyChanged} {
		// 冪等なキュー宣言
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("キュー宣言に失敗しました [%s]: %w", queue, err)
		}
	}

	return &RabbitMQPublisher{conn: conn, channel: ch, logger: logger}, nil
}

// PublishMovementRecorded publishes a committed stock movement event
// コミット済み在庫移動イベントを発行
func (p *RabbitMQPublisher) PublishMovementRecorded(ctx context.Context, event warehouse.MovementRecordedEvent) error {
	return p.publish(ctx, QueueMovementRecorded, event)
}

// PublishOccupancyChanged publishes a cell occupancy change event
// セル占有変化イベントを発行
func (p *RabbitMQPublisher) PublishOccupancyChanged(ctx context.Context, event warehouse.OccupancyChangedEvent) error {
	return p.publish(ctx, QueueOccupancyChanged, event)
}

// publish marshals the event and sends it to the named queue as a
// persistent JSON message via the default exchange
// イベントをJSONにエンコードし、デフォルトエクスチェンジ経由で
// 永続メッセージとして指定キューへ送信
func (p *RabbitMQPublisher) publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗しました: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.channel.PublishWithContext(ctx,
		"",    // デフォルトエクスチェンジ
		queue, // ルーティングキー = キュー名
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("イベント発行に失敗しました [%s]: %w", queue, err)
	}

	p.logger.Debug("イベントを発行しました",
		zap.String("queue", queue),
		zap.Int("bytes", len(body)))
	return nil
}

// Close releases the channel and the connection
// チャネルと接続を解放
func (p *RabbitMQPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return fmt.Errorf("RabbitMQチャネルのクローズに失敗しました: %w", err)
	}
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("RabbitMQ接続のクローズに失敗しました: %w", err)
	}
	return nil
}
