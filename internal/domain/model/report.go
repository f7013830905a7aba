package model

// ReportKind distinguishes how a report is retrieved from Graph.
type ReportKind string

const (
	// ReportKindDirect reports are plain GET endpoints returning a paged
	// value[] array.
	ReportKindDirect ReportKind = "direct"
	// ReportKindExportJob reports go through the asynchronous
	// deviceManagement/reports/exportJobs flow.
	ReportKindExportJob ReportKind = "exportJob"
)

// GraphVersion selects which Graph API surface a direct report lives on.
type GraphVersion string

const (
	GraphV1   GraphVersion = "v1.0"
	GraphBeta GraphVersion = "beta"
)

// ReportDefinition describes one retrievable report: where it lives, what
// delegated permission it needs, and which column identifies a row.
type ReportDefinition struct {
	Name        string
	DisplayName string
	// Description is markdown shown on the report catalog page.
	Description string
	Kind        ReportKind
	// Endpoint is the Graph path for direct reports (empty for export jobs).
	Endpoint string
	Version  GraphVersion
	// RequiredPermission is the delegated scope the tenant must have granted.
	RequiredPermission string
	// IDColumn is always retained by column selection. Empty means the first
	// column of the retrieved table identifies the row.
	IDColumn string
	// Parameters are default OData query parameters for direct reports.
	Parameters map[string]string
}

// Catalog returns every report this tool can export, in display order.
func Catalog() []ReportDefinition {
	return catalog
}

// LookupReport finds a report definition by name. The second return value is
// false when the name is not in the catalog.
func LookupReport(name string) (ReportDefinition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return ReportDefinition{}, false
}

// EffectiveIDColumn resolves the column that identifies a row of table. It is
// the definition's IDColumn when the retrieved table actually has it, the
// first retrieved column otherwise. Graph occasionally renames columns
// between API versions, so the configured name is not trusted blindly.
func EffectiveIDColumn(table *ReportTable, def ReportDefinition) string {
	if def.IDColumn != "" && table.HasColumn(def.IDColumn) {
		return def.IDColumn
	}
	if len(table.Columns) > 0 {
		return table.Columns[0]
	}
	return ""
}

var catalog = []ReportDefinition{
	{
		Name:        "Devices",
		DisplayName: "All Managed Devices",
		Description: "Every device enrolled in Intune with its **compliance state**, OS, " +
			"model and primary user. The broadest inventory report and the usual starting point.",
		Kind:               ReportKindDirect,
		Endpoint:           "/deviceManagement/managedDevices",
		Version:            GraphBeta,
		RequiredPermission: "DeviceManagementManagedDevices.Read.All",
		IDColumn:           "deviceName",
		Parameters:         map[string]string{"$top": "999"},
	},
	{
		Name:        "Users",
		DisplayName: "All Users",
		Description: "All users in the organization, from the `/users` endpoint.",
		Kind:               ReportKindDirect,
		Endpoint:           "/users",
		Version:            GraphV1,
		RequiredPermission: "User.ReadBasic.All",
		IDColumn:           "userPrincipalName",
		Parameters:         map[string]string{"$top": "999"},
	},
	{
		Name:        "AllGroupsInMyOrg",
		DisplayName: "All Groups",
		Description: "All groups in the organization, including *security* and *Microsoft 365* groups.",
		Kind:               ReportKindDirect,
		Endpoint:           "/groups",
		Version:            GraphV1,
		RequiredPermission: "Group.Read.All",
		IDColumn:           "displayName",
		Parameters:         map[string]string{"$top": "999"},
	},
	{
		Name:        "AllAppsList",
		DisplayName: "All Apps List",
		Description: "Every mobile app known to Intune with publishing state and assignment.",
		Kind:               ReportKindDirect,
		Endpoint:           "/deviceAppManagement/mobileApps",
		Version:            GraphBeta,
		RequiredPermission: "DeviceManagementApps.Read.All",
		IDColumn:           "displayName",
		Parameters:         map[string]string{"$top": "999"},
	},
	{
		Name:        "OrgAppsInstallStatus",
		DisplayName: "Org Apps Install Status",
		Description: "Assigned apps only (`isAssigned eq true`) with their install summaries.",
		Kind:               ReportKindDirect,
		Endpoint:           "/deviceAppManagement/mobileApps",
		Version:            GraphBeta,
		RequiredPermission: "DeviceManagementApps.Read.All",
		IDColumn:           "displayName",
		Parameters:         map[string]string{"$top": "999", "$filter": "isAssigned eq true"},
	},
	{
		Name:        "Policies",
		DisplayName: "Compliance Policies",
		Description: "Device compliance policies with their device and user status overviews.",
		Kind:               ReportKindDirect,
		Endpoint:           "/deviceManagement/deviceCompliancePolicies",
		Version:            GraphBeta,
		RequiredPermission: "DeviceManagementConfiguration.Read.All",
		IDColumn:           "displayName",
		Parameters:         map[string]string{"$top": "999", "$expand": "deviceStatusOverview,userStatusOverview"},
	},
	{
		Name:        "DevicesWithInventory",
		DisplayName: "Devices with Hardware Inventory",
		Description: "Managed devices **including hardware details** (storage, serial number, " +
			"TPM). Retrieved through an export job; large tenants can take several minutes.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementManagedDevices.Read.All",
		IDColumn:           "DeviceName",
	},
	{
		Name:        "DeviceCompliance",
		DisplayName: "Device Compliance Status",
		Description: "Per-device compliance evaluation results across all assigned policies.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementConfiguration.Read.All",
		IDColumn:           "DeviceName",
	},
	{
		Name:        "DeviceNonCompliance",
		DisplayName: "Device Non-Compliance",
		Description: "Only devices currently out of compliance, with the failing setting.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementConfiguration.Read.All",
		IDColumn:           "DeviceName",
	},
	{
		Name:        "Malware",
		DisplayName: "Detected Malware",
		Description: "Malware detections reported by Microsoft Defender on managed devices.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementManagedDevices.Read.All",
		IDColumn:           "DeviceName",
	},
	{
		Name:        "DefenderAgents",
		DisplayName: "Defender Agent Status",
		Description: "Microsoft Defender agent health per device: signature age, engine " +
			"version, real-time protection state.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementManagedDevices.Read.All",
		IDColumn:           "DeviceName",
	},
	{
		Name:        "FirewallStatus",
		DisplayName: "MDM Firewall Status",
		Description: "Windows firewall status for MDM-managed devices.",
		Kind:               ReportKindExportJob,
		RequiredPermission: "DeviceManagementConfiguration.Read.All",
		IDColumn:           "DeviceName",
	},
}

// RequiredScopes is the full set of delegated permissions the app requests at
// sign-in. Reports whose permission was not granted by the tenant are flagged
// in the catalog rather than hidden.
func RequiredScopes() []string {
	return []string{
		"DeviceManagementConfiguration.Read.All",
		"DeviceManagementManagedDevices.Read.All",
		"DeviceManagementApps.Read.All",
		"User.ReadBasic.All",
		"Group.Read.All",
		"Directory.Read.All",
	}
}
