package gateway

import (
	"net/http"

	"github.com/Pandentia/docmail/docmail"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// sentLettersHandler relays the provider's sent-messages payload unchanged.
func (api *API) sentLettersHandler(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx).With().Str("handler", "sent-letters").Logger()

	token, err := api.provider.Authenticate(ctx, api.config.Credentials)
	if err != nil {
		logger.Err(err).Object("account", api.config.Credentials).Msg("Error acquiring provider token")
		c.JSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgListFailed})
		return
	}

	body, err := api.provider.ListSent(ctx, token)
	if err != nil {
		logger.Err(err).Msg("Error listing sent letters")
		c.JSON(http.StatusInternalServerError, gin.H{"message": docmail.MsgListFailed})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
