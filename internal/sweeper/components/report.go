package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/sweeper/service"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const unknownField = "미확인"

var amountPrinter = message.NewPrinter(language.Korean)

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return unknownField
	}
	return t.In(loc).Format("01/02 15:04")
}

// formatAmount renders 17700 KRW as "17,700KRW"
func formatAmount(amount *int64, currency *shared.Currency) string {
	if amount == nil || currency == nil {
		return unknownField
	}
	return amountPrinter.Sprintf("%d", *amount) + string(*currency)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return unknownField
	}
	return *s
}

// FormatInferenceReport is the account-channel message for one inferred record.
// The trailing id is what the correction listener looks for in thread replies.
func FormatInferenceReport(rec *record.Record, c record.Classification, loc *time.Location) string {
	return fmt.Sprintf("%s | %s | %s | %s → `%s` > `%s` > `%s` | 아이디: %s",
		formatTimestamp(rec.PaidAt, loc),
		orUnknown(rec.SenderName),
		orUnknown(rec.Counterparty),
		formatAmount(rec.Amount, rec.Currency),
		c.Purpose, c.CategoryMajor, c.CategoryMinor,
		rec.MessageID,
	)
}

// FormatUnlinkedReport is the receipt-channel message for a resale payment without a receipt
func FormatUnlinkedReport(rec *record.Record, loc *time.Location) string {
	amount := unknownField
	if rec.Amount != nil && rec.Currency != nil {
		amount = fmt.Sprintf("%s |아이디: %s", formatAmount(rec.Amount, rec.Currency), rec.MessageID)
	}
	return fmt.Sprintf("영수증 없음:pleading_face: %s | %s | %s | %s",
		formatTimestamp(rec.PaidAt, loc),
		orUnknown(rec.SenderName),
		orUnknown(rec.Counterparty),
		amount,
	)
}

// FormatStalenessReminder asks the person behind an ingestion channel to upload again
func FormatStalenessReminder(mention string, threshold time.Duration) string {
	return fmt.Sprintf("%s 마지막 메세지 업로드가 %d시간 지났습니다. 업로드 부탁드려요~", mention, int(threshold.Hours()))
}

// FormatCorrectionApplied confirms an applied correction in the thread
func FormatCorrectionApplied(messageID string, c record.Classification) string {
	return fmt.Sprintf("✅ `%s` 분류 정보가 업데이트되었습니다!\n• 거래목적: `%s`\n• 계정과목(대): `%s`\n• 계정과목(소): `%s`, reason: %s",
		messageID, c.Purpose, c.CategoryMajor, c.CategoryMinor, c.Reason)
}

const (
	replyMissingRecordID = "❌ 메시지에서 '아이디:' 부분을 찾을 수 없습니다. 올바른 형식으로 입력해주세요."
)

func formatRecordNotFound(messageID string) string {
	return fmt.Sprintf("❌ ID `%s`에 해당하는 레코드를 찾을 수 없습니다.", messageID)
}

func formatStoreFailure(err error) string {
	return fmt.Sprintf("❌ 데이터베이스 업데이트 중 오류가 발생했습니다: %v", err)
}

func formatClassifierFailure(err error) string {
	return fmt.Sprintf("❌ 수정 내용을 해석하지 못했습니다: %v", err)
}

// bestEffortNotifier wraps a service.Notifier with a per-send deadline and best-effort semantics
type bestEffortNotifier struct {
	target  service.Notifier
	timeout time.Duration
	logger  *slog.Logger
}

func (n bestEffortNotifier) send(ctx context.Context, channel, text string) bool {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.target.Send(sendCtx, channel, text); err != nil {
		n.logger.Warn("Failed to deliver notification", "channel", channel, "error", err)
		return false
	}
	return true
}

func (n bestEffortNotifier) reply(ctx context.Context, channel, threadTS, text string) bool {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.target.Reply(sendCtx, channel, threadTS, text); err != nil {
		n.logger.Warn("Failed to deliver thread reply", "channel", channel, "thread_ts", threadTS, "error", err)
		return false
	}
	return true
}
