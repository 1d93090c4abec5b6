// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// MapsKeyOptions controls how the Google Maps Embed API key is found.
type MapsKeyOptions struct {
	// UseADC enables the lookup through Application Default Credentials
	UseADC bool

	// ProjectID overrides the project found in the credentials
	ProjectID string

	// DisplayName of the key resource in the API Keys service
	DisplayName string
}

// ResolveMapsAPIKey returns GOOGLE_MAPS_API_KEY, or the key found via ADC when
// enabled. An empty key is fine: the keyless embed is used instead.
func ResolveMapsAPIKey(ctx context.Context, options MapsKeyOptions) string {
	if apiKey := os.Getenv("GOOGLE_MAPS_API_KEY"); apiKey != "" {
		return apiKey
	}

	if !options.UseADC {
		log.Println("GOOGLE_MAPS_API_KEY is not set. Using the keyless Google Maps embed.")

		return ""
	}

	log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

	apiKey, err := getAPIKeyFromADC(ctx, options)
	if err != nil {
		log.Printf("Failed to retrieve API key via ADC: %v", err)

		return ""
	}

	log.Println("✅ Successfully retrieved Google Maps API Key via ADC")

	return apiKey
}

func getAPIKeyFromADC(ctx context.Context, options MapsKeyOptions) (string, error) {
	projectID := options.ProjectID
	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return "", fmt.Errorf("finding default credentials: %w", err)
		}

		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project ID found in credentials, use --gcp-project")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	targetDisplayName := options.DisplayName
	if targetDisplayName == "" {
		targetDisplayName = "Polycheck Maps Embed Key"
	}

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != targetDisplayName {
			continue
		}

		// ListKeys redacts the secret, GetKeyString returns it.
		log.Printf("Found key resource '%s', retrieving secret...", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", targetDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", targetDisplayName, projectID)
}
