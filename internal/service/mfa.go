package service

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/pkg/cryptox"
)

var (
	ErrSecretNotFound = errors.New("twofa_secret_not_found")
	ErrCodeNotValid   = errors.New("twofa_code_not_valid")
	ErrTwoFAEnabled   = errors.New("twofa_already_enabled")
	ErrQRGeneration   = errors.New("twofa_qr_generation_failed")
)

const qrImageSize = 256

// MFAService manages TOTP enrollment and code verification. Secrets are
// encrypted before they touch the store and decrypted only for the duration
// of a code check.
type MFAService struct {
	Store  store.Store
	Cipher *cryptox.SecretCipher

	// Issuer is the label accounts appear under in authenticator apps.
	Issuer string
}

// BeginEnrollment generates a fresh TOTP secret for the user, persists it
// encrypted, and writes the provisioning QR code as a PNG to w.
//
// The secret is stored before the QR is rendered, so a failed render leaves
// the secret on file. Re-running enrollment simply overwrites it; the
// account is not considered enrolled until a code is confirmed.
func (s *MFAService) BeginEnrollment(ctx context.Context, userID int64, accountName string, w io.Writer) error {
	enabled, err := s.IsEnabled(ctx, userID)
	if err != nil {
		return err
	}
	if enabled {
		return ErrTwoFAEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("generate totp secret: %w", err)
	}

	encrypted, err := s.Cipher.Encrypt(key.Secret())
	if err != nil {
		return fmt.Errorf("encrypt totp secret: %w", err)
	}
	if err := s.Store.Users().UpdateTwoFASecret(ctx, userID, encrypted); err != nil {
		return fmt.Errorf("persist totp secret: %w", err)
	}

	img, err := key.Image(qrImageSize, qrImageSize)
	if err != nil {
		return ErrQRGeneration
	}
	if err := png.Encode(w, img); err != nil {
		return ErrQRGeneration
	}
	return nil
}

// VerifyCode checks a six digit TOTP code against the user's stored secret.
// With confirmEnrollment set, a valid code also flips the account to
// 2FA-enabled, completing enrollment.
func (s *MFAService) VerifyCode(ctx context.Context, userID int64, code string, confirmEnrollment bool) error {
	encrypted, err := s.Store.Users().GetTwoFASecret(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSecretNotFound
		}
		return fmt.Errorf("load totp secret: %w", err)
	}

	secret, err := s.Cipher.Decrypt(encrypted)
	if err != nil {
		return fmt.Errorf("decrypt totp secret: %w", err)
	}

	if !totp.Validate(code, secret) {
		return ErrCodeNotValid
	}

	if confirmEnrollment {
		if err := s.Store.Users().SetTwoFAEnabled(ctx, userID, true); err != nil {
			return fmt.Errorf("enable twofa: %w", err)
		}
	}
	return nil
}

// IsEnabled reports whether the user has completed 2FA enrollment.
func (s *MFAService) IsEnabled(ctx context.Context, userID int64) (bool, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return user.TwoFAEnabled, nil
}
