package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"clipper/internal/format"
	"clipper/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func selectFormatter(flags *globalFlags) {
	if flags.yaml {
		outputFormatter = format.YAMLFormatter{}
		return
	}
	outputFormatter = format.JSONFormatter{}
}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeFile(file *models.File, flags *globalFlags) error {
	if flags.structured() {
		return writeStructured(file)
	}
	return writePlain("%s\n", formatFileDetail(*file))
}

func writeFileList(files []models.File) error {
	for _, file := range files {
		if err := writePlain("%s\n", formatFileLine(file)); err != nil {
			return err
		}
	}
	return nil
}

func writeAttachments(attachments []models.Attachment, flags *globalFlags) error {
	if flags.structured() {
		return writeStructured(attachments)
	}
	for _, attachment := range attachments {
		if err := writePlain("%s\n", formatAttachmentLine(attachment)); err != nil {
			return err
		}
	}
	return nil
}

func formatFileDetail(file models.File) string {
	lines := []string{
		fmt.Sprintf("id: %d", file.ID),
		fmt.Sprintf("mime_type: %s", file.MimeType),
		fmt.Sprintf("backend: %s", file.Backend),
		fmt.Sprintf("created_at: %s", formatTime(file.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(file.UpdatedAt)),
	}
	if file.HasLabel() {
		lines = append(lines, fmt.Sprintf("label: %s", file.Label))
	}
	return strings.Join(lines, "\n")
}

func formatFileLine(file models.File) string {
	line := fmt.Sprintf("%d [%s] [%s]", file.ID, file.Backend, file.MimeType)
	if file.HasLabel() {
		line += " " + file.Label
	}
	return line
}

func formatAttachmentLine(attachment models.Attachment) string {
	slot := "-"
	if attachment.HasSlot() {
		slot = attachment.SlotValue()
	}
	return fmt.Sprintf("%d file=%d owner=%s slot=%s", attachment.ID, attachment.FileID, attachment.Owner, slot)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptions(opts models.Options) string {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(opts))
	}
	return string(data)
}
