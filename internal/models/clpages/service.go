package clpages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"biostore/internal/models/clerrors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxPagesPerUser limite le nombre de pages d'un compte
const MaxPagesPerUser = 20

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{1,29}$`)

// UsernameReserver signale un username déjà pris hors de la table pages
type UsernameReserver interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

type Service struct {
	db *gorm.DB
	// modèles portant une colonne page_id, supprimés avec la page
	dependents []any
	reservers  []UsernameReserver
}

func NewService(db *gorm.DB, dependents ...any) *Service {
	return &Service{db: db, dependents: dependents}
}

// AddReserver enregistre une source supplémentaire de usernames pris
func (s *Service) AddReserver(r UsernameReserver) {
	s.reservers = append(s.reservers, r)
}

// NormalizeUsername met en minuscule et valide le format
func NormalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return "", clerrors.Validation("Username is required")
	}
	if !usernamePattern.MatchString(u) {
		return "", clerrors.Validation("username must be 2 to 30 characters among letters, digits, '.', '-' and '_'")
	}
	return u, nil
}

// FindUser retourne l'utilisateur lié à authID, nil s'il n'existe pas
func (s *Service) FindUser(ctx context.Context, authID string) (*User, error) {
	if authID == "" {
		return nil, clerrors.ErrUnauthorized
	}
	var user User
	err := s.db.WithContext(ctx).Where("auth_id = ?", authID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, clerrors.Unexpected("failed to load user", err)
	}
	return &user, nil
}

// GetOrCreateUser crée le compte au premier appel, un email est alors requis
func (s *Service) GetOrCreateUser(ctx context.Context, authID, email string) (*User, error) {
	user, err := s.FindUser(ctx, authID)
	if err != nil || user != nil {
		return user, err
	}
	if email == "" {
		return nil, clerrors.Validation("User not found. Please provide email to create account.")
	}

	var created User
	err = s.db.WithContext(ctx).
		Where(User{AuthID: authID}).
		Attrs(User{Email: email, Plan: "free"}).
		FirstOrCreate(&created).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to create user", err)
	}
	log.Info().Str("auth_id", authID).Uint("user_id", created.ID).Msg("user created")
	return &created, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*Page, error) {
	var page Page
	err := s.db.WithContext(ctx).First(&page, id).Error
	if err != nil {
		return nil, clerrors.FromStore(err, "Page")
	}
	return &page, nil
}

// Owner vérifie que authID possède la page: Unauthorized sans identité,
// NotFound si la page n'existe pas, Forbidden sinon
func (s *Service) Owner(ctx context.Context, authID string, pageID uint) (*Page, *User, error) {
	if authID == "" {
		return nil, nil, clerrors.ErrUnauthorized
	}
	page, err := s.Get(ctx, pageID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.FindUser(ctx, authID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !page.OwnedBy(user.ID) {
		return nil, nil, clerrors.ErrForbidden
	}
	return page, user, nil
}

// Viewer charge la page pour une lecture. Avec une identité connue,
// la page doit lui appartenir.
func (s *Service) Viewer(ctx context.Context, authID string, pageID uint) (*Page, error) {
	page, err := s.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if authID == "" {
		return page, nil
	}
	user, err := s.FindUser(ctx, authID)
	if err != nil {
		return nil, err
	}
	if user != nil && !page.OwnedBy(user.ID) {
		return nil, clerrors.ErrForbidden
	}
	return page, nil
}

// ListForUser retourne les pages du compte, vide si le compte n'existe pas encore
func (s *Service) ListForUser(ctx context.Context, authID string) ([]Page, error) {
	user, err := s.FindUser(ctx, authID)
	if err != nil {
		return nil, err
	}
	pages := []Page{}
	if user == nil {
		return pages, nil
	}
	err = s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("created_at ASC, id ASC").
		Find(&pages).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to fetch pages", err)
	}
	return pages, nil
}

func (s *Service) Create(ctx context.Context, authID string, in CreateInput) (*Page, error) {
	if authID == "" {
		return nil, clerrors.ErrUnauthorized
	}
	username, err := NormalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}

	user, err := s.GetOrCreateUser(ctx, authID, in.Email)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Page{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return nil, clerrors.Unexpected("failed to count pages", err)
	}
	if count >= MaxPagesPerUser {
		return nil, clerrors.Validation("Maximum pages limit reached (%d)", MaxPagesPerUser)
	}

	taken, err := s.activePageExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, clerrors.Validation("Username already taken")
	}

	name := strings.TrimSpace(in.ProfileName)
	if name == "" {
		name = username
	}
	page := Page{
		UserID:      &user.ID,
		Username:    username,
		ProfileName: name,
		IsActive:    true,
	}
	if err := db.Create(&page).Error; err != nil {
		return nil, clerrors.Unexpected("failed to create page", err)
	}
	return &page, nil
}

func (s *Service) Update(ctx context.Context, authID string, pageID uint, upd PageUpdate) (*Page, error) {
	page, _, err := s.Owner(ctx, authID, pageID)
	if err != nil {
		return nil, err
	}
	cols := upd.columns()
	if len(cols) == 0 {
		return page, nil
	}
	if active, ok := cols["is_active"].(bool); ok && active && !page.IsActive {
		taken, err := s.activePageExists(ctx, page.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, clerrors.Validation("Username already taken")
		}
	}
	if err := s.db.WithContext(ctx).Model(page).Updates(cols).Error; err != nil {
		return nil, clerrors.Unexpected("failed to update page", err)
	}
	return s.Get(ctx, pageID)
}

// Delete supprime la page et toutes les lignes qui la référencent
func (s *Service) Delete(ctx context.Context, authID string, pageID uint) error {
	if _, _, err := s.Owner(ctx, authID, pageID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range s.dependents {
			if err := tx.Where("page_id = ?", pageID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}
		return tx.Delete(&Page{}, pageID).Error
	})
	if err != nil {
		return clerrors.Unexpected("failed to delete page", err)
	}
	return nil
}

// Transfer donne une page sans propriétaire au compte authID, créé depuis
// email au besoin. Une page déjà possédée par un autre compte est refusée.
func (s *Service) Transfer(ctx context.Context, authID, email string, pageID uint) (*Page, error) {
	if authID == "" {
		return nil, clerrors.ErrUnauthorized
	}
	page, err := s.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}

	if page.UserID != nil {
		user, err := s.FindUser(ctx, authID)
		if err != nil {
			return nil, err
		}
		if user == nil || !page.OwnedBy(user.ID) {
			return nil, clerrors.ErrForbidden
		}
		return page, nil
	}

	user, err := s.GetOrCreateUser(ctx, authID, email)
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&Page{}).
		Where("id = ? AND user_id IS NULL", pageID).
		Update("user_id", user.ID)
	if res.Error != nil {
		return nil, clerrors.Unexpected("failed to transfer page", res.Error)
	}
	if res.RowsAffected == 0 {
		// réclamée entre-temps
		page, err = s.Get(ctx, pageID)
		if err != nil {
			return nil, err
		}
		if !page.OwnedBy(user.ID) {
			return nil, clerrors.ErrForbidden
		}
		return page, nil
	}
	log.Info().Uint("page_id", pageID).Uint("user_id", user.ID).Msg("page transferred")
	return s.Get(ctx, pageID)
}

// GetByUsername retourne la page active pour ce username
func (s *Service) GetByUsername(ctx context.Context, username string) (*Page, error) {
	var page Page
	err := s.db.WithContext(ctx).
		Where("username = ? AND is_active = ?", strings.ToLower(username), true).
		Order("id ASC").
		First(&page).Error
	if err != nil {
		return nil, clerrors.FromStore(err, "Page")
	}
	return &page, nil
}

// UsernameAvailable consulte les pages actives puis les autres sources
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	taken, err := s.activePageExists(ctx, u)
	if err != nil || taken {
		return false, err
	}
	for _, r := range s.reservers {
		taken, err := r.UsernameTaken(ctx, u)
		if err != nil {
			return false, clerrors.Unexpected("failed to check username", err)
		}
		if taken {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) activePageExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Page{}).
		Where("username = ? AND is_active = ?", username, true).
		Count(&count).Error
	if err != nil {
		return false, clerrors.Unexpected("failed to check username", err)
	}
	return count > 0, nil
}

// PublicStats somme les compteurs dénormalisés de toutes les pages
func (s *Service) PublicStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := s.db.WithContext(ctx).Model(&Page{}).
		Select("COUNT(*) AS pages, COALESCE(SUM(views), 0) AS views, COALESCE(SUM(clicks), 0) AS clicks").
		Scan(&stats).Error
	if err != nil {
		return nil, clerrors.Unexpected("failed to compute stats", err)
	}
	return &stats, nil
}
