package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/domain"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/imagegen"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/line"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/prompt"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/session"
)

// Messenger is the slice of the LINE client the conversation service needs.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages ...any) error
	Push(ctx context.Context, to string, messages ...any) error
	MessageContent(ctx context.Context, messageID string) ([]byte, error)
}

// Generator produces photorealistic variants from a source rendering.
type Generator interface {
	GenerateVariants(ctx context.Context, image []byte, promptText string, count int, onResult imagegen.ResultFunc) []imagegen.Outcome
}

type Options struct {
	Messenger        Messenger
	Generator        Generator
	Users            domain.UserRepository
	Usage            domain.UsageRepository
	Gallery          domain.GalleryRepository
	Sessions         *session.Store
	FreeMonthlyLimit int
	VariantCount     int
	Logger           infra.Logger
}

// Service drives the conversation: follow, source image, custom instruction,
// then background generation with results pushed as they resolve.
type Service struct {
	messenger    Messenger
	generator    Generator
	users        domain.UserRepository
	usage        domain.UsageRepository
	gallery      domain.GalleryRepository
	sessions     *session.Store
	freeLimit    int
	variantCount int
	logger       infra.Logger

	wg sync.WaitGroup
}

func NewService(opts Options) *Service {
	freeLimit := opts.FreeMonthlyLimit
	if freeLimit <= 0 {
		freeLimit = 3
	}
	variantCount := opts.VariantCount
	if variantCount <= 0 {
		variantCount = len(imagegen.Backends)
	}
	return &Service{
		messenger:    opts.Messenger,
		generator:    opts.Generator,
		users:        opts.Users,
		usage:        opts.Usage,
		gallery:      opts.Gallery,
		sessions:     opts.Sessions,
		freeLimit:    freeLimit,
		variantCount: variantCount,
		logger:       opts.Logger,
	}
}

// Wait blocks until all background generation runs have finished. Used on
// shutdown so in-flight requests still deliver.
func (s *Service) Wait() {
	s.wg.Wait()
}

// HandleEvent dispatches a single webhook event.
func (s *Service) HandleEvent(ctx context.Context, ev line.Event) {
	switch ev.Type {
	case line.EventTypeFollow:
		s.handleFollow(ctx, ev)
	case line.EventTypeUnfollow:
		s.sessions.Clear(ev.Source.UserID)
	case line.EventTypeMessage:
		if ev.Message == nil {
			return
		}
		switch ev.Message.Type {
		case line.MessageTypeImage:
			s.handleImage(ctx, ev)
		case line.MessageTypeText:
			s.handleText(ctx, ev)
		}
	}
}

func (s *Service) handleFollow(ctx context.Context, ev line.Event) {
	userID := ev.Source.UserID
	if err := s.users.Create(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: register user failed")
	}

	welcome := "AI住宅パースへようこそ！\n\n" +
		"使い方はカンタン：\n" +
		"1. 建築パースの写真を送信\n" +
		"2. 追加指示を入力（モダン、和風など）\n" +
		"3. 30秒で完成！\n\n" +
		fmt.Sprintf("毎月%d回まで無料でお試しいただけます。\n\n", s.freeLimit) +
		"さっそく写真を送ってみてください！"
	s.reply(ctx, ev.ReplyToken, line.NewTextMessage(welcome))
}

func (s *Service) handleImage(ctx context.Context, ev line.Event) {
	userID := ev.Source.UserID

	remaining, unlimited := s.remaining(ctx, userID)
	if !unlimited && remaining <= 0 {
		notice := fmt.Sprintf("今月の無料枠（%d回）を使い切りました。\n\n", s.freeLimit) +
			"無制限プラン: 月額1,980円\n" +
			"お申し込みはこちら:\n" +
			"https://example.com/subscribe"
		s.reply(ctx, ev.ReplyToken, line.NewTextMessage(notice))
		return
	}

	s.sessions.BeginAwaitingPrompt(userID, ev.Message.ID)

	msg := line.NewTextMessage("追加の指示があれば入力してください。\n\n" +
		"例：\n" +
		"・モダンな雰囲気で\n" +
		"・和風テイストに\n" +
		"・外壁をブラックに\n" +
		"・緑を多めに\n\n" +
		"そのまま生成する場合は「OK」と送信してください。")
	msg.QuickReply = &line.QuickReply{Items: []line.QuickReplyItem{
		line.NewQuickReplyItem("そのまま生成", "OK"),
		line.NewQuickReplyItem("モダン", "モダンな雰囲気で"),
		line.NewQuickReplyItem("和風", "和風テイストで"),
		line.NewQuickReplyItem("ナチュラル", "ナチュラルな雰囲気で"),
	}}
	s.reply(ctx, ev.ReplyToken, msg)
}

func (s *Service) handleText(ctx context.Context, ev line.Event) {
	userID := ev.Source.UserID

	sess, ok := s.sessions.Get(userID)
	if !ok || sess.Status != domain.SessionAwaitingPrompt {
		remaining, unlimited := s.remaining(ctx, userID)
		count := fmt.Sprintf("%d回", remaining)
		if unlimited {
			count = "無制限"
		}
		s.reply(ctx, ev.ReplyToken, line.NewTextMessage(
			"建築パースの写真を送ってください。\n\n今月の残り回数: "+count))
		return
	}

	s.sessions.Clear(userID)
	s.reply(ctx, ev.ReplyToken, line.NewTextMessage("生成中です...30秒ほどお待ちください"))

	custom := strings.TrimSpace(ev.Message.Text)
	if strings.EqualFold(custom, "OK") {
		custom = ""
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runGeneration(context.Background(), userID, sess.ImageMessageID, custom)
	}()
}

func (s *Service) runGeneration(ctx context.Context, userID, imageMessageID, custom string) {
	image, err := s.messenger.MessageContent(ctx, imageMessageID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: fetch source image failed")
		s.push(ctx, userID, line.NewTextMessage("エラーが発生しました。もう一度お試しください。"))
		return
	}

	promptText := prompt.Build(custom)

	outcomes := s.generator.GenerateVariants(ctx, image, promptText, s.variantCount, func(index int, outcome imagegen.Outcome) {
		if !outcome.OK() {
			s.logger.Warn().Err(outcome.Err).Str("backend", outcome.Backend).Msg("bot: variant failed")
			return
		}
		s.push(ctx, userID, line.NewImageMessage(outcome.URL))
		entry := domain.GalleryEntry{
			CreatedAt:       time.Now(),
			UserID:          userID,
			ParseType:       prompt.ParseTypePhotoreal,
			CustomPrompt:    custom,
			ImageURL:        outcome.URL,
			OriginalImageID: imageMessageID,
		}
		if err := s.gallery.Append(ctx, entry); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: gallery append failed")
		}
	})

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.OK() {
			succeeded++
		}
	}

	if succeeded == 0 {
		s.push(ctx, userID, line.NewTextMessage("生成に失敗しました。もう一度お試しください。"))
		return
	}

	if err := s.usage.Append(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: usage append failed")
	}

	remaining, unlimited := s.remaining(ctx, userID)
	count := fmt.Sprintf("%d回", remaining)
	if unlimited {
		count = "無制限"
	}
	s.push(ctx, userID, line.NewTextMessage(
		fmt.Sprintf("完成しました！（%d枚）\n\n今月の残り回数: %s", succeeded, count)))
}

// remaining reports how many free generations are left this month. Premium
// users are unlimited.
func (s *Service) remaining(ctx context.Context, userID string) (int, bool) {
	user, err := s.users.GetByID(ctx, userID)
	if err == nil && user.PremiumActive(time.Now()) {
		return 0, true
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: load user failed")
	}

	used, err := s.usage.MonthlyCount(ctx, userID, time.Now().Format("2006-01"))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("bot: monthly usage lookup failed")
		return 0, false
	}
	remaining := s.freeLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false
}

func (s *Service) reply(ctx context.Context, replyToken string, messages ...any) {
	if err := s.messenger.Reply(ctx, replyToken, messages...); err != nil {
		s.logger.Error().Err(err).Msg("bot: reply failed")
	}
}

func (s *Service) push(ctx context.Context, to string, messages ...any) {
	if err := s.messenger.Push(ctx, to, messages...); err != nil {
		s.logger.Error().Err(err).Str("user_id", to).Msg("bot: push failed")
	}
}
