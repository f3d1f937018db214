package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

const (
	contextChoice = "choice"
	contextSecret = "secret"
)

// MattermostClient is the part of model.Client4 the bot uses.
type MattermostClient interface {
	CreatePost(post *model.Post) (*model.Post, *model.Response, error)
	PatchPost(postId string, patch *model.PostPatch) (*model.Post, *model.Response, error)
	GetChannelMember(channelId, userId, etag string) (*model.ChannelMember, *model.Response, error)
	GetUser(userId, etag string) (*model.User, *model.Response, error)
}

type Messenger struct {
	client       MattermostClient
	l            *zap.Logger
	actionURL    string
	actionSecret string
}

func NewMessenger(client MattermostClient, l *zap.Logger, actionURL, actionSecret string) *Messenger {
	return &Messenger{
		client:       client,
		l:            l,
		actionURL:    actionURL,
		actionSecret: actionSecret,
	}
}

func (m *Messenger) MemberStatus(_ context.Context, channelID, userID string) (models.MemberStatus, error) {
	member, resp, err := m.client.GetChannelMember(channelID, userID, "")
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return models.StatusLeft, nil
		}
		return "", fmt.Errorf("api: failed to get channel member: %w", err)
	}
	if member.SchemeAdmin {
		return models.StatusAdministrator, nil
	}
	return models.StatusMember, nil
}

// Voter loads the user's names, the choice is left empty.
func (m *Messenger) Voter(_ context.Context, userID string) (models.Voter, error) {
	user, _, err := m.client.GetUser(userID, "")
	if err != nil {
		return models.Voter{}, fmt.Errorf("api: failed to get user %s: %w", userID, err)
	}
	return models.Voter{
		ID:       user.Id,
		Name:     models.DisplayName(user.FirstName, user.LastName, user.Username),
		Username: user.Username,
	}, nil
}

// Send posts text with one attachment per grid row, each button calling
// back the vote action with its payload.
func (m *Messenger) Send(_ context.Context, channelID, text string, grid models.Grid) (string, error) {
	post := &model.Post{
		ChannelId: channelID,
		Message:   text,
	}
	model.ParseSlackAttachment(post, m.attachments(grid))

	created, resp, err := m.client.CreatePost(post)
	if err != nil {
		return "", fmt.Errorf("api: failed to create post: %w", err)
	}
	m.l.Debug("send new message",
		zap.String("channel_id", created.ChannelId),
		zap.String("post_id", created.Id),
		zap.Int("status_code", statusCode(resp)))
	return created.Id, nil
}

// Edit patches only the message, the attachments stay as they are.
func (m *Messenger) Edit(_ context.Context, messageID, text string) error {
	_, resp, err := m.client.PatchPost(messageID, &model.PostPatch{Message: &text})
	if err != nil {
		return fmt.Errorf("api: failed to patch post %s: %w", messageID, err)
	}
	m.l.Debug("message edited", zap.String("post_id", messageID), zap.Int("status_code", statusCode(resp)))
	return nil
}

func (m *Messenger) Reply(_ context.Context, channelID, rootID, text string) error {
	post := &model.Post{
		ChannelId: channelID,
		Message:   text,
		RootId:    rootID,
	}
	if _, _, err := m.client.CreatePost(post); err != nil {
		return fmt.Errorf("api: failed to reply: %w", err)
	}
	return nil
}

func (m *Messenger) attachments(grid models.Grid) []*model.SlackAttachment {
	attachments := make([]*model.SlackAttachment, 0, len(grid))
	for _, row := range grid {
		actions := make([]*model.PostAction, 0, len(row))
		for _, button := range row {
			actionContext := map[string]interface{}{contextChoice: button.Payload}
			if m.actionSecret != "" {
				actionContext[contextSecret] = m.actionSecret
			}
			actions = append(actions, &model.PostAction{
				Name: button.Label,
				Type: model.PostActionTypeButton,
				Integration: &model.PostActionIntegration{
					URL:     m.actionURL,
					Context: actionContext,
				},
			})
		}
		attachments = append(attachments, &model.SlackAttachment{Actions: actions})
	}
	return attachments
}

func statusCode(resp *model.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
