package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/keyword"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/logger"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/plugin"
	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/replicate"
)

const (
	imagePluginName = "replicate"
	errorReplyTag   = "[RP] "
	sendPictureText = "请发送一张图片给我"
)

type ReplicateClient interface {
	GetModel(ctx context.Context, ref string) (*replicate.Model, error)
	GetVersion(ctx context.Context, model *replicate.Model, versionID string) (*replicate.Version, error)
	Predict(ctx context.Context, versionID string, input map[string]any) (*replicate.Prediction, error)
}

type ParamsResolver interface {
	Resolve(ctx context.Context, q keyword.Query) (domain.Params, error)
	HelpText(trigger string, verbose bool) string
}

type PendingCache interface {
	Put(key string, params domain.Params)
	Take(key string) (domain.Params, bool)
}

type GenerationRepository interface {
	Save(ctx context.Context, generation domain.Generation) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Generation, error)
}

type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string) (string, error)
}

type imageService struct {
	client            ReplicateClient
	downloader        FileDownloader
	resolver          ParamsResolver
	pending           PendingCache
	generations       GenerationRepository
	triggers          []string
	predictionTimeout time.Duration
}

// NewImageService creates the replicate plugin. triggers are the host's
// image-create prefixes; none means image creation is switched off. A zero
// predictionTimeout leaves predictions bounded only by the event context.
func NewImageService(
	client ReplicateClient,
	downloader FileDownloader,
	resolver ParamsResolver,
	pending PendingCache,
	generations GenerationRepository,
	triggers []string,
	predictionTimeout time.Duration,
) *imageService {
	return &imageService{
		client:            client,
		downloader:        downloader,
		resolver:          resolver,
		pending:           pending,
		generations:       generations,
		triggers:          triggers,
		predictionTimeout: predictionTimeout,
	}
}

func (s *imageService) Name() string { return imagePluginName }

func (s *imageService) HelpText(verbose bool) string {
	var trigger string
	if len(s.triggers) > 0 {
		trigger = s.triggers[0]
	}
	return s.resolver.HelpText(trigger, verbose)
}

func (s *imageService) HandleEvent(ctx context.Context, ec *plugin.EventContext) {
	var handle func(context.Context, *plugin.EventContext) error
	switch ec.Event.Kind {
	case plugin.EventImageCreate:
		handle = s.handleCreate
	case plugin.EventImageUpload:
		handle = s.handleUpload
	case plugin.EventRepeat:
		handle = s.handleRepeat
	default:
		return
	}

	slog.InfoContext(ctx, "Handling image event",
		"kind", ec.Event.Kind.String(),
		"sessionID", ec.Event.SessionID,
		"content", ec.Event.Content,
	)

	if err := handle(ctx, ec); err != nil {
		slog.ErrorContext(ctx, "Image event failed", "kind", ec.Event.Kind.String(), logger.Err(err))
		ec.Reply = domain.ErrorReply(errorReplyTag + err.Error())
		ec.Action = plugin.ActionContinue
	}
}

func (s *imageService) handleCreate(ctx context.Context, ec *plugin.EventContext) error {
	query := keyword.Parse(ec.Event.Content)

	if query.IsHelp() {
		ec.Reply = domain.InfoReply(s.HelpText(true))
		ec.Action = plugin.ActionBreakPass
		return nil
	}

	params, err := s.resolver.Resolve(ctx, query)
	if keyword.IsSkip(err) {
		slog.InfoContext(ctx, "Image request skipped", "reason", err.Error())
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving params: %w", err)
	}

	return s.startOrPark(ctx, ec, params)
}

func (s *imageService) handleUpload(ctx context.Context, ec *plugin.EventContext) error {
	params, ok := s.pending.Take(ec.Event.SessionID)
	if !ok {
		slog.DebugContext(ctx, "No pending request for session", "sessionID", ec.Event.SessionID)
		return nil
	}

	imageURI, err := s.readUpload(ctx, ec.Event.Content)
	if err != nil {
		return err
	}

	return s.run(ctx, ec, params, imageURI)
}

// readUpload downloads the picture, encodes it as a data URI and removes the
// local copy.
func (s *imageService) readUpload(ctx context.Context, fileID string) (string, error) {
	path, err := s.downloader.DownloadFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("downloading uploaded image: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.WarnContext(ctx, "Removing uploaded image failed", "path", path, logger.Err(err))
		}
	}()

	imageURI, err := replicate.DataURIFromFile(path)
	if err != nil {
		return "", fmt.Errorf("reading uploaded image: %w", err)
	}
	return imageURI, nil
}

func (s *imageService) handleRepeat(ctx context.Context, ec *plugin.EventContext) error {
	generation, err := s.generations.GetByID(ctx, ec.Event.Content)
	if err != nil {
		return fmt.Errorf("getting generation %s: %w", ec.Event.Content, err)
	}

	slog.InfoContext(ctx, "Repeating generation", "generationID", generation.ID)

	return s.startOrPark(ctx, ec, generation.Params)
}

// startOrPark runs params right away, or parks them until the session sends
// the picture they need.
func (s *imageService) startOrPark(ctx context.Context, ec *plugin.EventContext, params domain.Params) error {
	if params.NeedsImage() {
		s.pending.Put(ec.Event.SessionID, params)
		slog.InfoContext(ctx, "Waiting for image upload", "sessionID", ec.Event.SessionID, "slot", params.Image)

		ec.Reply = domain.InfoReply(sendPictureText)
		ec.Action = plugin.ActionBreakPass
		return nil
	}

	return s.run(ctx, ec, params, "")
}

func (s *imageService) run(ctx context.Context, ec *plugin.EventContext, params domain.Params, imageURI string) error {
	url, err := s.predict(ctx, params, imageURI)
	if err != nil {
		return err
	}

	generationID := s.saveGeneration(ctx, ec.Event.SessionID, params, url)

	ec.Reply = domain.ImageURLReply(url, generationID)
	ec.Action = plugin.ActionBreakPass
	return nil
}

func (s *imageService) predict(ctx context.Context, params domain.Params, imageURI string) (string, error) {
	if s.predictionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.predictionTimeout)
		defer cancel()
	}

	model, err := s.client.GetModel(ctx, params.Model)
	if err != nil {
		return "", err
	}

	version, err := s.client.GetVersion(ctx, model, params.Version)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Starting prediction", "model", model.Ref(), "version", version.ID)

	prediction, err := s.client.Predict(ctx, version.ID, params.Input(imageURI))
	if err != nil {
		return "", err
	}

	url, err := prediction.LastOutput()
	if err != nil {
		return "", fmt.Errorf("reading prediction %s output: %w", prediction.ID, err)
	}

	slog.InfoContext(ctx, "Prediction finished", "predictionID", prediction.ID, "result", url)
	return url, nil
}

func (s *imageService) saveGeneration(ctx context.Context, sessionID string, params domain.Params, url string) string {
	id, err := s.generations.Save(ctx, domain.Generation{
		SessionID: sessionID,
		Params:    params,
		ResultURL: url,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "Generation not saved", logger.Err(err))
		return ""
	}
	return id
}
