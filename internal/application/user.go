package app

import (
	"context"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

type UserService struct {
	repo port.UserRepository
}

func NewUserService(repo port.UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *UserService) SetState(ctx context.Context, userID, chatID int64, state entity.UserState) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SetState(state) })
}

// SelectTask запоминает задачу и ждёт фото.
func (s *UserService) SelectTask(ctx context.Context, userID, chatID int64, task entity.Task) (*entity.User, error) {
	return s.update(ctx, userID, chatID, func(u *entity.User) { u.SelectTask(task) })
}

func (s *UserService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// Forget удаляет пользователя из хранилища.
func (s *UserService) Forget(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}

func (s *UserService) update(ctx context.Context, userID, chatID int64, apply func(*entity.User)) (*entity.User, error) {
	user, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	apply(user)
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
