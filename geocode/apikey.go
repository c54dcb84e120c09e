// Copyright 2025 The ViewerGeo Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

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

// GoogleMapsKeyDisplayName is the display name of the API key looked up
// through Application Default Credentials.
const GoogleMapsKeyDisplayName = "ViewerGeo Geocoding Key"

// ErrNoAPIKey is returned when no Google Maps key could be found.
var ErrNoAPIKey = errors.New("google maps api key not configured")

// ResolveGoogleMapsAPIKey returns GOOGLE_MAPS_API_KEY when set and
// otherwise looks the key up in the ADC project.
func ResolveGoogleMapsAPIKey(ctx context.Context) (string, error) {
	if apiKey := os.Getenv("GOOGLE_MAPS_API_KEY"); apiKey != "" {
		return apiKey, nil
	}

	log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

	apiKey, err := APIKeyFromADC(ctx, GoogleMapsKeyDisplayName)
	if err != nil {
		return "", errors.Join(ErrNoAPIKey, err)
	}

	log.Println("✅ Successfully retrieved Google Maps API Key via ADC")

	return apiKey, nil
}

// APIKeyFromADC finds the API key named displayName in the project of the
// Application Default Credentials and returns its secret.
func APIKeyFromADC(ctx context.Context, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// user credentials without a quota project carry no project
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	if projectID == "" {
		return "", errors.New("no project found in credentials or GOOGLE_CLOUD_PROJECT")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	req := &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	}

	it := client.ListKeys(ctx, req)

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the KeyString, GetKeyString does not.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
