package validations

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	pkgError "github.com/postpilot/postpilot/pkg/error"
	"github.com/postpilot/postpilot/scheduler/domain"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var supportedPlatforms = []any{
	domain.PlatformDevto,
	domain.PlatformHashnode,
	domain.PlatformMedium,
	domain.PlatformLinkedin,
	domain.PlatformTwitter,
	domain.PlatformFacebook,
	domain.PlatformInstagram,
}

func ValidateSchedule(ctx context.Context, cfg domain.ScheduleConfig) error {
	err := validation.ValidateStructWithContext(ctx, &cfg,
		validation.Field(&cfg.Platform, validation.Required, validation.In(supportedPlatforms...)),
		validation.Field(&cfg.MaxPostsPerDay, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&cfg.PreferredTimes, validation.Required,
			validation.Each(validation.Match(clockPattern).Error("must be HH:MM"))),
		validation.Field(&cfg.DaysOfWeek,
			validation.Each(validation.Min(0), validation.Max(6))),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCredential(ctx context.Context, cred domain.Credential) error {
	err := validation.ValidateStructWithContext(ctx, &cred,
		validation.Field(&cred.Platform, validation.Required),
		validation.Field(&cred.Token, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
