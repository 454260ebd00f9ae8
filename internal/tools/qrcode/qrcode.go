// Package qrcode provides the QRCodeTool, which renders QR codes for plain
// text, URLs, vCard contacts, and WiFi credentials.
//
// Output is either a human-readable description of the generated code or the
// PNG image as a base64 string, selected by the "format" parameter.
package qrcode

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	qr "github.com/skip2/go-qrcode"

	"github.com/loquax-ai/loquax/internal/tools"
)

// Name is the registry key for this tool.
const Name = "QRCodeTool"

// Size bounds for the rendered image, in pixels.
const (
	minSize     = 100
	maxSize     = 500
	defaultSize = 200
)

// Tool implements tools.Tool for QR code generation.
type Tool struct{}

// New returns a QRCodeTool.
func New() *Tool {
	return &Tool{}
}

// Spec implements tools.Tool.
func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        Name,
		Description: "Generate QR codes for URLs, text, contact information, or WiFi credentials",
		Parameters: map[string]tools.Param{
			"content": {
				Type:        tools.TypeString,
				Description: "The content to encode in the QR code (URL, text, contact info, etc.)",
				Required:    true,
			},
			"qr_type": {
				Type:        tools.TypeString,
				Description: "Type of QR code content (url, text, contact, wifi). Defaults to 'text'",
				Required:    false,
			},
			"size": {
				Type:        tools.TypeInteger,
				Description: "Size of the QR code in pixels (default: 200, range: 100-500)",
				Required:    false,
			},
			"format": {
				Type:        tools.TypeString,
				Description: "Output format (base64 or description). Defaults to 'description'",
				Required:    false,
			},
			"name": {
				Type:        tools.TypeString,
				Description: "Name for contact QR codes (required when qr_type is 'contact')",
				Required:    false,
			},
			"phone": {
				Type:        tools.TypeString,
				Description: "Phone number for contact QR codes (required when qr_type is 'contact')",
				Required:    false,
			},
			"email": {
				Type:        tools.TypeString,
				Description: "Email for contact QR codes (optional when qr_type is 'contact')",
				Required:    false,
			},
			"ssid": {
				Type:        tools.TypeString,
				Description: "WiFi network name (required when qr_type is 'wifi')",
				Required:    false,
			},
			"password": {
				Type:        tools.TypeString,
				Description: "WiFi password (required when qr_type is 'wifi')",
				Required:    false,
			},
			"encryption": {
				Type:        tools.TypeString,
				Description: "WiFi encryption type (WPA, WEP, nopass). Defaults to 'WPA'",
				Required:    false,
			},
		},
	}
}

// Execute implements tools.Tool.
func (t *Tool) Execute(_ context.Context, args map[string]any) (string, error) {
	content := tools.StringArg(args, "content", "")
	qrType := strings.ToLower(tools.StringArg(args, "qr_type", "text"))

	payload, label, errMsg := buildPayload(qrType, content, args)
	if errMsg != "" {
		return errMsg, nil
	}

	size := clampSize(tools.IntArg(args, "size", defaultSize))

	png, err := qr.Encode(payload, qr.Medium, size)
	if err != nil {
		return fmt.Sprintf("Error generating QR code: %v", err), nil
	}

	switch strings.ToLower(tools.StringArg(args, "format", "description")) {
	case "base64":
		return base64.StdEncoding.EncodeToString(png), nil
	default:
		return fmt.Sprintf("Generated a %dx%d pixel QR code encoding %s (%d bytes of PNG data).",
			size, size, label, len(png)), nil
	}
}

// buildPayload assembles the raw QR payload for the requested type.
// It returns the payload, a short human label for it, and an "Error: ..."
// message when required fields are missing.
func buildPayload(qrType, content string, args map[string]any) (payload, label, errMsg string) {
	switch qrType {
	case "contact":
		name := tools.StringArg(args, "name", "")
		phone := tools.StringArg(args, "phone", "")
		if name == "" || phone == "" {
			return "", "", "Error: contact QR codes require 'name' and 'phone' parameters"
		}
		email := tools.StringArg(args, "email", "")
		return vCard(name, phone, email), fmt.Sprintf("a contact card for %s", name), ""

	case "wifi":
		ssid := tools.StringArg(args, "ssid", "")
		if ssid == "" {
			return "", "", "Error: wifi QR codes require an 'ssid' parameter"
		}
		password := tools.StringArg(args, "password", "")
		encryption := tools.StringArg(args, "encryption", "WPA")
		return fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;;", encryption, ssid, password),
			fmt.Sprintf("WiFi credentials for network %q", ssid), ""

	case "url":
		if content == "" {
			return "", "", "Error: a 'content' parameter is required"
		}
		return content, fmt.Sprintf("the URL %s", content), ""

	default: // text
		if content == "" {
			return "", "", "Error: a 'content' parameter is required"
		}
		return content, fmt.Sprintf("the text %q", truncate(content, 60)), ""
	}
}

// vCard renders a minimal version 3.0 vCard.
func vCard(name, phone, email string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\nVERSION:3.0\n")
	fmt.Fprintf(&b, "FN:%s\nTEL:%s", name, phone)
	if email != "" {
		fmt.Fprintf(&b, "\nEMAIL:%s", email)
	}
	b.WriteString("\nEND:VCARD")
	return b.String()
}

func clampSize(size int) int {
	if size < minSize {
		return minSize
	}
	if size > maxSize {
		return maxSize
	}
	return size
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
