package sqlengine

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	defaultGlobalIDTableName       = "jv_global_id"
	defaultSnapshotTableName       = "jv_snapshot"
	defaultCommitTableName         = "jv_commit"
	defaultCommitPropertyTableName = "jv_commit_property"

	colGlobalIDPK        = "global_id_pk"
	colGlobalIDLocalID   = "local_id"
	colGlobalIDFragment  = "fragment"
	colGlobalIDTypeName  = "type_name"
	colGlobalIDOwnerIDFK = "owner_id_fk"

	colCommitPK                = "commit_pk"
	colCommitAuthor            = "author"
	colCommitCommitDate        = "commit_date"
	colCommitCommitDateInstant = "commit_date_instant"
	colCommitCommitID          = "commit_id"

	colCommitPropertyCommitFK = "commit_fk"
	colCommitPropertyName     = "property_name"
	colCommitPropertyValue    = "property_value"

	colSnapshotPK          = "snapshot_pk"
	colSnapshotCommitFK    = "commit_fk"
	colSnapshotGlobalIDFK  = "global_id_fk"
	colSnapshotType        = "type"
	colSnapshotVersion     = "version"
	colSnapshotState       = "state"
	colSnapshotChanged     = "changed_properties"
	colSnapshotManagedType = "managed_type"

	aliasSnapshot       = "s"
	aliasCommit         = "c"
	aliasGlobalID       = "g"
	aliasOwner          = "o"
	aliasCommitProperty = "cp"
	ownerColumnPrefix   = "owner_"
)

// Names provides the physical table names of the four relations, optionally qualified with a schema.
// Column names follow the fixed layout of the audit tables.
type Names struct {
	schema                  string
	globalIDTableName       string
	snapshotTableName       string
	commitTableName         string
	commitPropertyTableName string
}

func defaultNames() Names {
	return Names{
		globalIDTableName:       defaultGlobalIDTableName,
		snapshotTableName:       defaultSnapshotTableName,
		commitTableName:         defaultCommitTableName,
		commitPropertyTableName: defaultCommitPropertyTableName,
	}
}

func (n Names) GlobalIDTableNameWithSchema() string {
	return n.nameWithSchema(n.globalIDTableName)
}

func (n Names) SnapshotTableNameWithSchema() string {
	return n.nameWithSchema(n.snapshotTableName)
}

func (n Names) CommitTableNameWithSchema() string {
	return n.nameWithSchema(n.commitTableName)
}

func (n Names) CommitPropertyTableNameWithSchema() string {
	return n.nameWithSchema(n.commitPropertyTableName)
}

func (n Names) nameWithSchema(name string) string {
	if n.schema == "" {
		return name
	}

	return n.schema + "." + name
}

func (n Names) table(name string) exp.IdentifierExpression {
	table := goqu.T(name)
	if n.schema != "" {
		table = table.Schema(n.schema)
	}

	return table
}

func (n Names) globalIDTable(alias string) exp.AliasedExpression {
	return n.table(n.globalIDTableName).As(alias)
}

func (n Names) snapshotTable(alias string) exp.AliasedExpression {
	return n.table(n.snapshotTableName).As(alias)
}

func (n Names) commitTable(alias string) exp.AliasedExpression {
	return n.table(n.commitTableName).As(alias)
}

func (n Names) commitPropertyTable(alias string) exp.AliasedExpression {
	return n.table(n.commitPropertyTableName).As(alias)
}

// col builds an alias-qualified column identifier like "s"."version".
func col(alias string, column string) exp.IdentifierExpression {
	return goqu.T(alias).Col(column)
}
