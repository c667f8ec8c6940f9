// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider infers the target cloud provider from a free-text query.
package provider

import (
	"strings"

	"github.com/yingkitw/anycli/pkg/types"
)

// keywords maps each provider to the vocabulary that hints at it. Multi-word
// entries match as substrings of the lowercased query, single words match
// whole tokens.
var keywords = map[types.Provider][]string{
	types.ProviderIBMCloud: {
		"ibmcloud", "ibm", "bluemix", "watson", "watsonx", "cloudant",
		"code engine", "codeengine", "softlayer", "resource group",
	},
	types.ProviderAWS: {
		"aws", "amazon", "s3", "ec2", "lambda", "dynamodb", "cloudformation",
		"eks", "fargate",
	},
	types.ProviderGCP: {
		"gcloud", "gcp", "google", "gke", "bigquery", "compute engine",
		"cloud run", "firestore",
	},
	types.ProviderAzure: {
		"azure", "microsoft", "aks", "cosmos", "entra",
	},
	types.ProviderVMware: {
		"vmware", "vsphere", "vcenter", "esxi", "govc", "vapp",
	},
}

// Detection is a provider guess with a confidence in [0, 1].
type Detection struct {
	Provider   types.Provider
	Confidence float64
}

// Detect scans the query for provider vocabulary and returns the best guess.
// A query naming no provider yields an empty Detection. When one provider
// owns every keyword hit the confidence is 1; shared hits dilute it.
func Detect(query string) Detection {
	lowered := strings.ToLower(query)
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(lowered) {
		tokens[strings.Trim(tok, ".,!?;:'\"()")] = true
	}

	hits := make(map[types.Provider]int)
	total := 0
	for p, words := range keywords {
		for _, w := range words {
			matched := false
			if strings.ContainsRune(w, ' ') {
				matched = strings.Contains(lowered, w)
			} else {
				matched = tokens[w]
			}
			if matched {
				hits[p]++
				total++
			}
		}
	}
	if total == 0 {
		return Detection{}
	}

	best := Detection{}
	for _, p := range types.AllProviders() {
		n := hits[p]
		if n == 0 {
			continue
		}
		conf := float64(n) / float64(total)
		if conf > best.Confidence {
			best = Detection{Provider: p, Confidence: conf}
		}
	}
	return best
}
