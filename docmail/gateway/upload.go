package gateway

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Pandentia/docmail/docmail"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var errUploadTooLarge = errors.New("upload too large")

// uploadForm is the multipart body of POST /upload.
type uploadForm struct {
	File             *multipart.FileHeader `form:"pdf" validate:"required"`
	RecipientAddress string                `form:"recipientAddress" validate:"required"`
	Title            string                `form:"title"`
	RtnName          string                `form:"rtnName"`
	RtnOrganization  string                `form:"rtnOrganization"`
	RtnAddress1      string                `form:"rtnAddress1"`
	RtnAddress2      string                `form:"rtnAddress2"`
	RtnCity          string                `form:"rtnCity"`
	RtnState         string                `form:"rtnState"`
	RtnZip           string                `form:"rtnZip"`
}

func (f *uploadForm) trim() {
	for _, s := range []*string{
		&f.RecipientAddress, &f.Title, &f.RtnName, &f.RtnOrganization,
		&f.RtnAddress1, &f.RtnAddress2, &f.RtnCity, &f.RtnState, &f.RtnZip,
	} {
		*s = strings.TrimSpace(*s)
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their form names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == docmail.FileField && fe.Tag() == "required":
		return "a PDF file is required"
	case fe.Tag() == "required":
		return "must not be empty"
	default:
		return "invalid value"
	}
}

func toValidationError(errs validator.ValidationErrors) *docmail.ValidationError {
	verr := &docmail.ValidationError{}
	for _, fe := range errs {
		verr.Errors = append(verr.Errors, docmail.FieldError{
			Field:    fe.Field(),
			Message:  fieldMessage(fe),
			Location: "body",
		})
	}
	return verr
}

// parseLetter reads and validates the upload. The file is read fully into memory.
func (api *API) parseLetter(c *gin.Context) (docmail.Letter, error) {
	if c.Request.ContentLength > api.config.MaxUploadSize {
		return docmail.Letter{}, errUploadTooLarge
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.config.MaxUploadSize)

	var form uploadForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return docmail.Letter{}, errUploadTooLarge
		}
		return docmail.Letter{}, err
	}
	form.trim()

	if err := validate.Struct(&form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return docmail.Letter{}, toValidationError(verrs)
		}
		return docmail.Letter{}, err
	}
	if files := c.Request.MultipartForm.File[docmail.FileField]; len(files) > 1 {
		return docmail.Letter{}, &docmail.ValidationError{Errors: []docmail.FieldError{
			{Field: docmail.FileField, Message: "exactly one file is allowed", Location: "body"},
		}}
	}

	data, err := readFile(form.File)
	if err != nil {
		return docmail.Letter{}, err
	}
	if len(data) == 0 {
		return docmail.Letter{}, &docmail.ValidationError{Errors: []docmail.FieldError{
			{Field: docmail.FileField, Message: "file must not be empty", Location: "body"},
		}}
	}

	return docmail.Letter{
		RecipientAddress: form.RecipientAddress,
		Title:            form.Title,
		ReturnAddress: docmail.ReturnAddress{
			Name:         form.RtnName,
			Organization: form.RtnOrganization,
			Address1:     form.RtnAddress1,
			Address2:     form.RtnAddress2,
			City:         form.RtnCity,
			State:        form.RtnState,
			Zip:          form.RtnZip,
		},
		File: data,
	}, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (api *API) uploadHandler(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx).With().Str("handler", "upload").Logger()

	logger.Debug().Msg("Request received")

	letter, err := api.parseLetter(c)
	if err != nil {
		var verr *docmail.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.Debug().Err(err).Msg("Rejected invalid upload")
			c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Errors})
		case errors.Is(err, errUploadTooLarge):
			logger.Info().Int64("limit", api.config.MaxUploadSize).Msg("Rejected oversized upload")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": docmail.MsgUploadTooLarge})
		default:
			logger.Info().Err(err).Msg("Error parsing upload")
			c.JSON(http.StatusBadRequest, gin.H{"message": docmail.MsgInvalidMultipart})
		}
		return
	}

	event := docmail.LetterEvent{
		RequestID: requestID(c),
		Title:     letter.Title,
		Status:    docmail.StatusFailed,
	}

	token, err := api.provider.Authenticate(ctx, api.config.Credentials)
	if err != nil {
		logger.Err(err).Object("account", api.config.Credentials).Msg("Error acquiring provider token")
		event.Step = docmail.StepAuthenticate
		api.finish(event)
		c.JSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgInternalError})
		return
	}

	receipt, err := api.deliverer.Deliver(ctx, token, letter)
	if err != nil {
		var derr *docmail.DeliveryError
		if errors.As(err, &derr) {
			event.Step = derr.Step
			event.MessageID = derr.MessageID
		}
		logger.Err(err).Str("step", string(event.Step)).Str("message_id", event.MessageID).Msg("Error delivering letter")
		api.finish(event)

		if errors.Is(err, docmail.ErrSend) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgSendFailed})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgInternalError})
		return
	}

	event.Status = docmail.StatusSent
	event.MessageID = receipt.MessageID
	api.finish(event)

	logger.Info().Str("message_id", receipt.MessageID).Msg("Letter sent")
	c.JSON(http.StatusOK, gin.H{"message": docmail.MsgLetterSent})
}

// finish records and publishes the outcome of an upload that reached the provider.
func (api *API) finish(event docmail.LetterEvent) {
	event.OccurredAt = time.Now().UTC()
	api.metrics.letters.WithLabelValues(string(event.Status), string(event.Step)).Inc()
	api.notify(event)
}
