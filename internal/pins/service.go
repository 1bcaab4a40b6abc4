// Package pins はユーザーの全ボードのピンを集約する。
package pins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/moodboard/internal/metrics"
	"github.com/hitoshi/moodboard/internal/model"
	"github.com/hitoshi/moodboard/internal/pinterest"
)

// DefaultMaxConcurrent はボードごとのピン取得の同時実行数の既定値。
const DefaultMaxConcurrent = 10

// BoardSource はボード・ピンの取得元。*pinterest.Clientが満たす。
type BoardSource interface {
	ListBoards(ctx context.Context, accessToken string) ([]pinterest.Board, error)
	ListBoardPins(ctx context.Context, accessToken, boardID string) ([]json.RawMessage, error)
}

// Result はピン集約の結果。ピンはボード順に連結される。
type Result struct {
	TotalPins int               `json:"total_pins"`
	Pins      []json.RawMessage `json:"pins"`
}

// Service はピン集約のビジネスロジックを提供する。
type Service struct {
	source        BoardSource
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	maxConcurrent int
}

// NewService はServiceを生成する。maxConcurrentが0以下の場合はDefaultMaxConcurrentを使う。
func NewService(source BoardSource, collector metrics.MetricsCollector, logger *slog.Logger, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		source:        source,
		metrics:       collector,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// GetAllPins は全ボードのピンを並行取得して1つのリストにまとめる。
// 1ボードでも取得に失敗した場合は残りをキャンセルし、全体を失敗とする（部分結果は返さない）。
func (s *Service) GetAllPins(ctx context.Context, accessToken string) (*Result, error) {
	if accessToken == "" {
		return nil, model.NewUnauthorizedError()
	}

	boards, err := s.source.ListBoards(ctx, accessToken)
	if err != nil {
		s.logger.Error("ボード一覧の取得に失敗しました",
			slog.String("token", model.MaskToken(accessToken)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProviderError()
	}

	// ボードごとの結果をインデックスで保持し、完了順に関係なくボード順で連結する
	perBoard := make([][]json.RawMessage, len(boards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, board := range boards {
		i, board := i, board
		g.Go(func() error {
			pins, err := s.source.ListBoardPins(gctx, accessToken, board.ID)
			if err != nil {
				return fmt.Errorf("board %s: %w", board.ID, err)
			}
			perBoard[i] = pins
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("ボードのピン取得に失敗しました",
			slog.Int("board_count", len(boards)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProviderError()
	}

	total := 0
	for _, pins := range perBoard {
		total += len(pins)
	}
	all := make([]json.RawMessage, 0, total)
	for _, pins := range perBoard {
		all = append(all, pins...)
	}

	s.metrics.RecordPinsAggregated(len(boards), len(all))
	s.logger.Info("ピンを集約しました",
		slog.Int("board_count", len(boards)),
		slog.Int("total_pins", len(all)),
	)

	return &Result{TotalPins: len(all), Pins: all}, nil
}
