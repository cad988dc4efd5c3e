// Package cmd provides common initialization functions for the service
// binaries.
package cmd

import (
	"log/slog"
	"os"

	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/email"
	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/task"
	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/voice"
	"github.com/esly-abro/JKhomes-sub000/pkg/dispatch/whatsapp"
	"github.com/esly-abro/JKhomes-sub000/pkg/registry"
)

// NewRegistry builds the action handler registry with every provider
// integration registered. Provider credentials come from the environment.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(whatsapp.NewActionFactory(whatsapp.NewHTTPClient(
		os.Getenv("WHATSAPP_API_URL"), os.Getenv("WHATSAPP_API_KEY"))))
	reg.Register(voice.NewActionFactory(voice.NewHTTPDialer(
		os.Getenv("VOICE_API_URL"), os.Getenv("VOICE_API_KEY"))))
	reg.Register(email.NewActionFactory(email.NewHTTPSender(
		os.Getenv("EMAIL_API_URL"), os.Getenv("EMAIL_API_KEY"), os.Getenv("EMAIL_FROM"))))
	reg.Register(task.NewActionFactory(task.NewHTTPSink(
		os.Getenv("CRM_API_URL"), os.Getenv("CRM_API_KEY"))))

	return reg
}
