package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"medcase/internal/domain"
)

// Modelos gorm para el backend sqlite. Se mantienen separados de domain para que las
// etiquetas de persistencia no se filtren a la API.

type userRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	AvatarURL string
	Specialty string
}

func (userRow) TableName() string { return "users" }

type caseRow struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement"`
	Title               string `gorm:"not null"`
	Description         string `gorm:"not null"`
	Specialty           string `gorm:"not null"`
	Difficulty          string `gorm:"index;not null"`
	ExpectedDiagnosis   string `gorm:"not null"`
	AcceptableDiagnoses string
	ImageURL            string
	Status              string `gorm:"default:'available'"`
}

func (caseRow) TableName() string { return "cases" }

type chatRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"index;not null"`
	CaseID    int64     `gorm:"not null"`
	Status    string    `gorm:"default:'active'"`
	CreatedAt time.Time `gorm:"not null"`
}

func (chatRow) TableName() string { return "chats" }

type messageRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ChatID    int64     `gorm:"index;not null"`
	Sender    string    `gorm:"size:8;not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (messageRow) TableName() string { return "messages" }

type completionRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      int64     `gorm:"index;not null"`
	CaseID      int64     `gorm:"not null"`
	ChatID      int64     `gorm:"index;not null"`
	Result      string    `gorm:"size:16;not null"`
	Diagnosis   string    `gorm:"not null"`
	CompletedAt time.Time `gorm:"not null"`
}

func (completionRow) TableName() string { return "case_completions" }

// AutoMigrateGorm crea o actualiza las tablas del backend sqlite.
func AutoMigrateGorm(db *gorm.DB) error {
	return db.AutoMigrate(
		&userRow{},
		&caseRow{},
		&chatRow{},
		&messageRow{},
		&completionRow{},
	)
}

// NewGormStore construye el Store sobre una conexion gorm ya migrada.
func NewGormStore(db *gorm.DB) Store {
	return Store{
		Users:       &gormUserRepo{db: db},
		Cases:       &gormCaseRepo{db: db},
		Chats:       &gormChatRepo{db: db},
		Messages:    &gormMessageRepo{db: db},
		Completions: &gormCompletionRepo{db: db},
	}
}

func mapGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormUserRepo struct{ db *gorm.DB }

func (r *gormUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := userRow{
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Specialty: user.Specialty,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.User{}, err
	}
	user.ID = row.ID
	return user, nil
}

func (r *gormUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.User{}, mapGormErr(err)
	}
	return row.toDomain(), nil
}

func (r *gormUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		return domain.User{}, mapGormErr(err)
	}
	return row.toDomain(), nil
}

func (row userRow) toDomain() domain.User {
	return domain.User{
		ID:        row.ID,
		Username:  row.Username,
		Name:      row.Name,
		AvatarURL: row.AvatarURL,
		Specialty: row.Specialty,
	}
}

type gormCaseRepo struct{ db *gorm.DB }

func (r *gormCaseRepo) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	row := caseRow{
		Title:               c.Title,
		Description:         c.Description,
		Specialty:           c.Specialty,
		Difficulty:          c.Difficulty,
		ExpectedDiagnosis:   c.ExpectedDiagnosis,
		AcceptableDiagnoses: c.AcceptableDiagnoses,
		ImageURL:            c.ImageURL,
		Status:              c.Status,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Case{}, err
	}
	c.ID = row.ID
	return c, nil
}

func (r *gormCaseRepo) GetByID(ctx context.Context, id int64) (domain.Case, error) {
	var row caseRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Case{}, mapGormErr(err)
	}
	return row.toDomain(), nil
}

func (r *gormCaseRepo) List(ctx context.Context) ([]domain.Case, error) {
	var rows []caseRow
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return casesFromRows(rows), nil
}

func (r *gormCaseRepo) ListByDifficulty(ctx context.Context, difficulty string) ([]domain.Case, error) {
	var rows []caseRow
	if err := r.db.WithContext(ctx).
		Where("difficulty = ?", difficulty).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return casesFromRows(rows), nil
}

func (r *gormCaseRepo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&caseRow{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (row caseRow) toDomain() domain.Case {
	return domain.Case{
		ID:                  row.ID,
		Title:               row.Title,
		Description:         row.Description,
		Specialty:           row.Specialty,
		Difficulty:          row.Difficulty,
		ExpectedDiagnosis:   row.ExpectedDiagnosis,
		AcceptableDiagnoses: row.AcceptableDiagnoses,
		ImageURL:            row.ImageURL,
		Status:              row.Status,
	}
}

func casesFromRows(rows []caseRow) []domain.Case {
	out := make([]domain.Case, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

type gormChatRepo struct{ db *gorm.DB }

func (r *gormChatRepo) Create(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	row := chatRow{
		UserID:    chat.UserID,
		CaseID:    chat.CaseID,
		Status:    chat.Status,
		CreatedAt: chat.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Chat{}, err
	}
	chat.ID = row.ID
	chat.CreatedAt = row.CreatedAt
	return chat, nil
}

func (r *gormChatRepo) GetByID(ctx context.Context, id int64) (domain.Chat, error) {
	var row chatRow
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return domain.Chat{}, mapGormErr(err)
	}
	return domain.Chat{
		ID:        row.ID,
		UserID:    row.UserID,
		CaseID:    row.CaseID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
	}, nil
}

type gormMessageRepo struct{ db *gorm.DB }

func (r *gormMessageRepo) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	row := messageRow{
		ChatID:    message.ChatID,
		Sender:    message.Sender,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Message{}, err
	}
	message.ID = row.ID
	message.CreatedAt = row.CreatedAt
	return message, nil
}

func (r *gormMessageRepo) ListByChatID(ctx context.Context, chatID int64) ([]domain.Message, error) {
	var rows []messageRow
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Message{
			ID:        row.ID,
			ChatID:    row.ChatID,
			Sender:    row.Sender,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *gormMessageRepo) DeleteLastBySender(ctx context.Context, chatID int64, sender string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row messageRow
		err := tx.Where("chat_id = ? AND sender = ?", chatID, sender).
			Order("created_at DESC, id DESC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&messageRow{}, row.ID).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

type gormCompletionRepo struct{ db *gorm.DB }

func (r *gormCompletionRepo) Create(ctx context.Context, c domain.Completion) (domain.Completion, error) {
	row := completionRow{
		UserID:      c.UserID,
		CaseID:      c.CaseID,
		ChatID:      c.ChatID,
		Result:      string(c.Result),
		Diagnosis:   c.Diagnosis,
		CompletedAt: c.CompletedAt,
	}
	if row.CompletedAt.IsZero() {
		row.CompletedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Completion{}, err
	}
	c.ID = row.ID
	c.CompletedAt = row.CompletedAt
	return c, nil
}

func (r *gormCompletionRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&completionRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormCompletionRepo) GetLastByChatID(ctx context.Context, chatID int64) (domain.Completion, error) {
	var row completionRow
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("completed_at DESC, id DESC").
		First(&row).Error; err != nil {
		return domain.Completion{}, mapGormErr(err)
	}
	return row.toDomain(), nil
}

func (r *gormCompletionRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.Completion, error) {
	var rows []completionRow
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Completion, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (row completionRow) toDomain() domain.Completion {
	return domain.Completion{
		ID:          row.ID,
		UserID:      row.UserID,
		CaseID:      row.CaseID,
		ChatID:      row.ChatID,
		Result:      domain.DiagnosisResult(row.Result),
		Diagnosis:   row.Diagnosis,
		CompletedAt: row.CompletedAt,
	}
}
