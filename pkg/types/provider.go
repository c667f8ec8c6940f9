// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Provider identifies the target command-line tool family.
type Provider string

const (
	ProviderIBMCloud Provider = "ibmcloud"
	ProviderAWS      Provider = "aws"
	ProviderGCP      Provider = "gcp"
	ProviderAzure    Provider = "azure"
	ProviderVMware   Provider = "vmware"
)

// AllProviders lists the supported providers in display order.
func AllProviders() []Provider {
	return []Provider{ProviderIBMCloud, ProviderAWS, ProviderGCP, ProviderAzure, ProviderVMware}
}

// CLICommand returns the executable name for the provider's CLI. A generated
// command's first token is expected to match this.
func (p Provider) CLICommand() string {
	switch p {
	case ProviderIBMCloud:
		return "ibmcloud"
	case ProviderAWS:
		return "aws"
	case ProviderGCP:
		return "gcloud"
	case ProviderAzure:
		return "az"
	case ProviderVMware:
		return "govc"
	default:
		return ""
	}
}

// DisplayName returns the provider's human-readable name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderIBMCloud:
		return "IBM Cloud"
	case ProviderAWS:
		return "AWS"
	case ProviderGCP:
		return "Google Cloud Platform"
	case ProviderAzure:
		return "Microsoft Azure"
	case ProviderVMware:
		return "VMware vSphere"
	default:
		return string(p)
	}
}

// ParseProvider maps a user-supplied name or alias to a Provider. The empty
// string and unknown names return the zero Provider.
func ParseProvider(s string) Provider {
	switch s {
	case "ibmcloud", "ibm":
		return ProviderIBMCloud
	case "aws", "amazon":
		return ProviderAWS
	case "gcp", "gcloud", "google":
		return ProviderGCP
	case "azure", "az", "microsoft":
		return ProviderAzure
	case "vmware", "vsphere", "govc":
		return ProviderVMware
	default:
		return ""
	}
}
