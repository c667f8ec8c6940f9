// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package indexer

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yingkitw/anycli/pkg/types"
)

// loadDocument parses one corpus YAML file into a Document.
func loadDocument(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc types.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return types.Document{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Content == "" {
		return types.Document{}, fmt.Errorf("%s: document has no content", path)
	}
	return doc, nil
}

// SeedDocuments returns the built-in CLI documentation indexed when no corpus
// is available, so translation works out of the box.
func SeedDocuments() []types.Document {
	seeds := []struct {
		id, title, provider, content string
	}{
		{
			"seed-ibmcloud-overview", "IBM Cloud CLI Overview", "ibmcloud",
			"IBM Cloud CLI manages IBM Cloud resources from the terminal. " +
				"Use 'ibmcloud login' to authenticate and 'ibmcloud target' to set the " +
				"target resource group, organization, and space.",
		},
		{
			"seed-ibmcloud-resources", "IBM Cloud Resources", "ibmcloud",
			"To list resource groups, use 'ibmcloud resource groups'. " +
				"To list service instances, use 'ibmcloud resource service-instances'. " +
				"Add '--output json' for machine-readable output.",
		},
		{
			"seed-ibmcloud-containers", "IBM Cloud Kubernetes", "ibmcloud",
			"Kubernetes clusters are managed with 'ibmcloud ks clusters' to list " +
				"clusters and 'ibmcloud ks workers --cluster NAME' to list worker nodes. " +
				"Container registry images are listed with 'ibmcloud cr images'.",
		},
		{
			"seed-aws-basics", "AWS CLI Basics", "aws",
			"AWS CLI commands follow the pattern 'aws SERVICE OPERATION'. " +
				"List S3 buckets with 'aws s3 ls', describe EC2 instances with " +
				"'aws ec2 describe-instances', and set '--output json' for JSON output.",
		},
		{
			"seed-gcloud-basics", "Google Cloud CLI Basics", "gcp",
			"Google Cloud CLI commands follow 'gcloud GROUP COMMAND'. " +
				"List compute instances with 'gcloud compute instances list' and " +
				"switch projects with 'gcloud config set project PROJECT_ID'.",
		},
		{
			"seed-az-basics", "Azure CLI Basics", "azure",
			"Azure CLI commands follow 'az GROUP COMMAND'. List resource groups " +
				"with 'az group list', list virtual machines with 'az vm list', and " +
				"sign in with 'az login'.",
		},
	}

	docs := make([]types.Document, 0, len(seeds))
	for _, s := range seeds {
		docs = append(docs, types.Document{
			ID:      s.id,
			Title:   s.title,
			Content: s.content,
			Metadata: map[string]string{
				"provider": s.provider,
				"source":   "seed",
			},
		})
	}
	return docs
}
