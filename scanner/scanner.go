// Package scanner extracts transaction drafts from receipt images using
// Gemini. The model is a black box: we hand it a downscaled image plus a
// strict-JSON instruction and defensively parse whatever comes back.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/wealth_backend/models"
	"bitbucket.org/mmdatafocus/wealth_backend/utils"
	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.0-flash"

func buildReceiptPrompt() string {
	return "Analyze this receipt image and extract the following information in JSON format:\n" +
		"- Total amount (just the number)\n" +
		"- Date (in ISO format)\n" +
		"- Description or items purchased (brief summary)\n" +
		"- Merchant/store name\n" +
		"- Suggested category (one of: " + strings.Join(models.ExpenseCategories, ",") + ")\n\n" +
		"Only respond with valid JSON in this exact format:\n" +
		"{\n" +
		"  \"amount\": number,\n" +
		"  \"date\": \"ISO date string\",\n" +
		"  \"description\": \"string\",\n" +
		"  \"merchantName\": \"string\",\n" +
		"  \"category\": \"string\"\n" +
		"}\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n" +
		"If it is not a receipt, return an empty object {}\n"
}

// ScanReceipt classifies one receipt image into a transaction draft. An
// image the model judges not to be a receipt yields an empty draft, not an
// error.
func ScanReceipt(ctx context.Context, data []byte, mimeType string) (*ReceiptDraft, error) {
	imageData, imageMime := normalizeImage(data, mimeType)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						MIMEType: imageMime,
						Data:     imageData,
					},
				},
				{Text: buildReceiptPrompt()},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, DefaultModelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("scanner: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, utils.ErrorReceiptParse
	}

	return parseReceiptResponse(rawText)
}
