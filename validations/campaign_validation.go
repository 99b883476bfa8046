package validations

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
)

func ValidateCreateCampaign(ctx context.Context, request domainCampaign.CreateCampaignRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&request.Message, validation.Required),
		validation.Field(&request.MessageInterval, validation.Min(0)),
		validation.Field(&request.MessageBlocks, validation.Each(validation.Required)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if request.StartImmediately && request.ScheduledAt != nil {
		return pkgError.ValidationError("start_immediately and scheduled_at are mutually exclusive")
	}
	if request.ScheduledAt != nil && request.ScheduledAt.Before(time.Now().UTC()) {
		return pkgError.ValidationError("scheduled_at: must be in the future")
	}

	return nil
}

func ValidateAddContacts(ctx context.Context, request domainCampaign.AddContactsRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Contacts, validation.Required, validation.Length(1, 10000)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for _, contact := range request.Contacts {
		err := validation.ValidateStructWithContext(ctx, &contact,
			validation.Field(&contact.Phone, validation.Required, is.E164.Error("must be digits, optionally prefixed with +")),
			validation.Field(&contact.Name, validation.Required, validation.Length(1, 200)),
		)
		if err != nil {
			return pkgError.ValidationError(err.Error())
		}
	}

	return nil
}
