package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/calman/internal/model"
	"github.com/hitoshi/calman/internal/repository"
)

// Service は予定ライフサイクルのサービス層。
// 検証 → ストアゲートウェイへの委譲 → キャッシュ整合のフローを統括する。
//
// 整合性ルール: ローカルキャッシュはストアが操作を確定した後にのみ
// 変更する。ストア障害時はエラーを返し、キャッシュは変更しない。
type Service struct {
	repo      repository.EventRepository
	validator *Validator
	cache     *Cache
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.EventRepository) *Service {
	return &Service{
		repo:      repo,
		validator: NewValidator(),
		cache:     NewCache(),
	}
}

// List は全予定をstart昇順で返す。
// ストアから読み直してキャッシュを権威コピーに同期する（リードスルー）。
func (s *Service) List(ctx context.Context) ([]*model.Event, error) {
	events, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("予定一覧の取得に失敗しました: %w", err)
	}

	s.cache.ReplaceAll(events)
	return s.cache.Snapshot(), nil
}

// Snapshot はキャッシュされた予定コレクションのコピーを返す。
// ウィンドウイングエンジンはこれを読み、再バケット処理を行う。
func (s *Service) Snapshot() []*model.Event {
	return s.cache.Snapshot()
}

// Create はペイロードを検証し、ストアに新規予定を作成する。
// ID・タイムスタンプはここ（ストアゲートウェイ側）で付与し、
// 確定後にキャッシュへ追加する。
func (s *Service) Create(ctx context.Context, payload model.EventPayload) (*model.Event, error) {
	event, err := s.validator.Validate(payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event.ID = uuid.New().String()
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := s.repo.Create(ctx, event); err != nil {
		// ストア障害: キャッシュは変更しない
		return nil, err
	}

	s.cache.Insert(event)
	return event, nil
}

// Update は指定IDの予定を検証済みペイロードで置き換える。
// 対象が存在しない場合はEVENT_NOT_FOUNDを返し、キャッシュは変更しない。
// ID・CreatedAtは変更されず、UpdatedAtはここで更新する。
func (s *Service) Update(ctx context.Context, payload model.EventPayload) (*model.Event, error) {
	if payload.ID == "" {
		return nil, model.NewMissingIDError()
	}

	event, err := s.validator.Validate(payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, payload.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.NewEventNotFoundError(payload.ID)
	}

	event.ID = existing.ID
	event.FeedID = existing.FeedID
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now()

	ok, err := s.repo.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	if !ok {
		// FindByIDとUpdateの間に消えた場合もnot foundとして扱う
		return nil, model.NewEventNotFoundError(payload.ID)
	}

	s.cache.Replace(event)
	return event, nil
}

// Remove は指定IDの予定を削除する。
// ストアがnot foundを報告した場合はローカル削除を行わず、
// EVENT_NOT_FOUNDを返す（削除は冪等観測可能）。
func (s *Service) Remove(ctx context.Context, id string) error {
	if id == "" {
		return model.NewMissingIDError()
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewEventNotFoundError(id)
	}

	s.cache.Remove(id)
	return nil
}
