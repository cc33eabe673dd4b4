package driver

// Datasets store their id in the `dataset` property. Every lookup excludes
// the correction namespace passed as $corr.
const (
	GetDatasetsQuery = `
		MATCH (d:Dataset)
		WHERE NOT d.dataset = $corr
		RETURN properties(d) AS dataset
	`

	GetDatasetQuery = `
		MATCH (d:Dataset {dataset: $id})
		WHERE NOT d.dataset = $corr
		RETURN properties(d) AS dataset
	`

	CreateDatasetQuery = `
		MATCH (owner:Owner {name: $owner})
		MERGE (owner)-[:OWNS]->(d:Dataset {dataset: $id})
		SET d += $props
		RETURN d.dataset AS dataset
	`

	UpdateDatasetQuery = `
		MATCH (d:Dataset {dataset: $id})
		SET d += $props
		RETURN d.dataset AS dataset
	`

	DeleteDatasetQuery = `
		MATCH (d:Dataset {dataset: $id})-[r:OWNS]-()
		DELETE d, r
	`

	DeleteVacantNodesQuery = "MATCH (n:`_VACANT` {dataset: $id}) DETACH DELETE n"

	GetOwnerQuery = `
		MATCH (owner:Owner {name: $name})
		RETURN owner.name AS name, owner.password AS password
	`

	GetOwnerForDatasetQuery = `
		MATCH (owner:Owner)-[:OWNS]-(:Dataset {dataset: $id})
		RETURN owner.name AS name, owner.password AS password
	`

	MergeAdminQuery = `
		MERGE (admin:Owner {name: $name})
		ON CREATE SET admin.password = $password
	`
)

var IndexQueries = []string{
	"CREATE INDEX dataset_id IF NOT EXISTS FOR (d:Dataset) ON (d.dataset)",
	"CREATE INDEX owner_name IF NOT EXISTS FOR (o:Owner) ON (o.name)",
	"CREATE INDEX vacant_dataset IF NOT EXISTS FOR (n:`_VACANT`) ON (n.dataset)",
}
