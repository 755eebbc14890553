package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles staff login, logout and per-request authentication
type AuthService struct {
	staff      identity.StaffRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	clock      shared.Clock
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	staff identity.StaffRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	clock shared.Clock,
	logger *zap.Logger,
) *AuthService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &AuthService{
		staff:      staff,
		jwtService: jwtService,
		blacklist:  blacklist,
		clock:      clock,
		logger:     logger,
	}
}

// Login verifies credentials and issues a token pair. Unknown emails,
// wrong passwords and disabled accounts all fail with the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.staff.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email")
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CanAuthenticate() {
		s.logger.Warn("Login for disabled account", zap.String("user_id", user.ID.String()))
		return nil, shared.ErrInvalidCredentials
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.ErrInvalidCredentials
	}

	user.RecordLogin(s.clock.Now())
	if err := s.staff.Save(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("Staff logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("admin_role", string(user.EffectiveRole())))
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new pair. The presented refresh
// token is revoked so each one can be redeemed once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.ErrUnauthorized.WithDetails(map[string]any{"reason": err.Error()})
	}
	if err := s.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.RemainingTTL(s.clock.Now())); err != nil {
		return nil, err
	}
	s.logger.Info("Staff token refreshed", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

func (s *AuthService) issue(user *identity.StaffUser) (*LoginResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.EffectiveRole()),
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  NewMeResponse(user),
	}, nil
}

// Logout revokes the presented access token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.TokenJTI == "" || input.TokenTTL <= 0 {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
		return err
	}
	s.logger.Info("Staff logged out", zap.String("user_id", input.UserID.String()))
	return nil
}

// Authenticate validates an access token and loads the actor from the
// store. The role is always taken from the stored user, never the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, *auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return Actor{}, nil, shared.ErrUnauthorized.WithDetails(map[string]any{"reason": err.Error()})
	}

	if err := s.checkRevocation(ctx, claims); err != nil {
		return Actor{}, nil, err
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return Actor{}, nil, err
	}
	return NewActor(user), claims, nil
}

// checkRevocation rejects tokens revoked one by one (logout, refresh
// rotation) or wholesale for the user (deactivation, role change)
func (s *AuthService) checkRevocation(ctx context.Context, claims *auth.Claims) error {
	revokedErr := shared.ErrUnauthorized.WithDetails(map[string]any{"reason": auth.ErrTokenBlacklisted.Error()})
	if claims.ID != "" {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return revokedErr
		}
	}
	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return revokedErr
	}
	return nil
}

// activeUser loads the token's user; unknown and disabled users are
// unauthorized
func (s *AuthService) activeUser(ctx context.Context, claims *auth.Claims) (*identity.StaffUser, error) {
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.staff.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if !user.CanAuthenticate() {
		return nil, shared.ErrUnauthorized.WithDetails(map[string]any{"reason": "account disabled"})
	}
	return user, nil
}

// Me returns the current staff member with their permissions
func (s *AuthService) Me(ctx context.Context, actor Actor) (*MeResponse, error) {
	user, err := s.staff.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	me := NewMeResponse(user)
	return &me, nil
}
