package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// textractAPI is the slice of the Textract client the engine uses.
type textractAPI interface {
	DetectDocumentText(ctx context.Context, in *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractEngine recognizes page images with AWS Textract.
type TextractEngine struct {
	client textractAPI
	logger *slog.Logger
}

func NewTextractEngine(cfg Config, logger *slog.Logger) *TextractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	awsConfig := aws.Config{
		Region: cfg.AWSRegion,
	}
	// without static keys the SDK falls back to its default credential chain
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)
	}
	return &TextractEngine{client: textract.NewFromConfig(awsConfig), logger: logger}
}

func (e *TextractEngine) Name() string { return "textract" }

func (e *TextractEngine) Recognize(ctx context.Context, imagePath string) (Page, error) {
	start := time.Now()
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return Page{}, fmt.Errorf("read image: %w", err)
	}

	out, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: img},
	})
	if err != nil {
		e.logger.Error("ocr.textract.failed", "path", imagePath, "error", err)
		return Page{}, fmt.Errorf("textract detect: %w", err)
	}

	page := Summarize(blocksFromTextract(out.Blocks))
	page.ImagePath = imagePath
	e.logger.Info("ocr.textract.ok",
		"path", imagePath,
		"blocks", len(out.Blocks),
		"confidence", page.Confidence,
		"has_manuscript", page.HasManuscript,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return page, nil
}

func blocksFromTextract(in []types.Block) []Block {
	out := make([]Block, 0, len(in))
	for _, b := range in {
		var kind BlockKind
		switch b.BlockType {
		case types.BlockTypeLine:
			kind = BlockLine
		case types.BlockTypeWord:
			kind = BlockWord
		default:
			continue
		}
		out = append(out, Block{
			Kind:        kind,
			Text:        aws.ToString(b.Text),
			Confidence:  float64(aws.ToFloat32(b.Confidence)),
			Handwriting: b.TextType == types.TextTypeHandwriting,
		})
	}
	return out
}
