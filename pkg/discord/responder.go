package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/blamebot/pkg/pagination"
	"github.com/bwmarrin/discordgo"
)

// Discord JSON error codes for interactions that can no longer be answered.
const (
	codeUnknownInteraction  = 10062
	codeAlreadyAcknowledged = 40060
)

// interactionResponder answers one interaction through the REST API.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

// Respond implements pagination.Responder.
func (r *interactionResponder) Respond(ctx context.Context, reply pagination.Reply) error {
	err := r.session.InteractionRespond(r.interaction, toResponse(reply), discordgo.WithContext(ctx))
	return classifyRESTError(err)
}

// classifyRESTError maps expired interaction errors onto
// pagination.ErrInteractionExpired and passes everything else through.
func classifyRESTError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case codeUnknownInteraction, codeAlreadyAcknowledged:
			return fmt.Errorf("%w: code %d", pagination.ErrInteractionExpired, restErr.Message.Code)
		}
	}
	return err
}

// toResponse converts a reply into an interaction response.
func toResponse(reply pagination.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: reply.Content,
	}

	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{toEmbed(*reply.Embed)}
	}

	if len(reply.Controls) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(reply.Controls))
		for _, c := range reply.Controls {
			style := discordgo.PrimaryButton
			if c.Action == pagination.ActionRefresh {
				style = discordgo.SecondaryButton
			}
			buttons = append(buttons, discordgo.Button{
				Label:    c.Label,
				Style:    style,
				CustomID: c.CustomID,
				Disabled: c.Disabled,
			})
		}
		data.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		}
	}

	responseType := discordgo.InteractionResponseChannelMessageWithSource
	if reply.Update {
		responseType = discordgo.InteractionResponseUpdateMessage
	} else if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return &discordgo.InteractionResponse{Type: responseType, Data: data}
}

func toEmbed(e pagination.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}
