package e2e

import (
	"context"
	"errors"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"kinship/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/smithy-go"
)

const recipientContextKey = "kinship:recipient"

type kmsAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSWrapper wraps content keys with an AWS KMS key. The recipient id is bound as
// encryption context, so a wrapped key only unwraps for the recipient it was made for.
type KMSWrapper struct {
	kms    kmsAPI
	keyARN string
}

func NewKMSWrapper(keyARN string, client kmsAPI) *KMSWrapper {
	return &KMSWrapper{kms: client, keyARN: keyARN}
}

func NewKMSWrapperFromAWSConfig(keyARN string, cfg aws.Config) *KMSWrapper {
	return NewKMSWrapper(keyARN, kms.NewFromConfig(cfg))
}

func (w *KMSWrapper) Mode() string { return config.EncryptionKMS }

func (w *KMSWrapper) Wrap(ctx context.Context, recipient model.Recipient, contentKey []byte) ([]byte, error) {
	out, err := w.kms.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(w.keyARN),
		Plaintext:         contentKey,
		EncryptionContext: map[string]string{recipientContextKey: recipient.UserID},
	})
	if err != nil {
		return nil, kmsErr("kms encrypt", err)
	}
	if len(out.CiphertextBlob) == 0 {
		return nil, apperr.Internal("kms returned empty ciphertext")
	}
	return out.CiphertextBlob, nil
}

func (w *KMSWrapper) Unwrap(ctx context.Context, recipientID string, _ []byte, wrapped []byte) ([]byte, error) {
	out, err := w.kms.Decrypt(ctx, &kms.DecryptInput{
		KeyId:             aws.String(w.keyARN),
		CiphertextBlob:    wrapped,
		EncryptionContext: map[string]string{recipientContextKey: recipientID},
	})
	if err != nil {
		return nil, kmsErr("kms decrypt", err)
	}
	return out.Plaintext, nil
}

// kmsErr classifies KMS API errors by their error code
func kmsErr(op string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return apperr.From(err).WithOp(op)
	}
	kind := apperr.KindInternal
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "InvalidCiphertextException", "IncorrectKeyException", "InvalidGrantTokenException":
		kind = apperr.KindPermissionDenied
	case "NotFoundException":
		kind = apperr.KindNotFound
	case "ThrottlingException", "LimitExceededException":
		kind = apperr.KindRateLimited
	case "DependencyTimeoutException":
		kind = apperr.KindTimeout
	case "KMSInternalException", "KMSInvalidStateException", "DisabledException", "KeyUnavailableException":
		kind = apperr.KindUnavailable
	}
	return apperr.Wrap(kind, apiErr.ErrorMessage(), err).WithOp(op).With("code", apiErr.ErrorCode())
}
