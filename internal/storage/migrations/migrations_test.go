package migrations

import (
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header comment
CREATE TABLE a (x Int32);

-- second
CREATE VIEW b AS
SELECT x FROM a;
`
	got := splitStatements(input)
	want := []string{
		"CREATE TABLE a (x Int32)",
		"CREATE VIEW b AS\nSELECT x FROM a",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitStatements() = %q, want %q", got, want)
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'it''s' ; SELECT 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateNoSemicolonInStrings("SELECT\n'a;b'"); err == nil {
		t.Error("expected error for semicolon inside literal")
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/macro")
	if err != nil || db != "macro" {
		t.Errorf("databaseFromDSN() = %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, set := range []migrationSet{postgresSet, clickhouseSet} {
		files, err := set.files()
		if err != nil {
			t.Fatalf("files(%s): %v", set.dir, err)
		}
		if len(files) == 0 {
			t.Errorf("no migrations embedded for %s", set.dir)
		}
		for i := 1; i < len(files); i++ {
			if files[i-1] >= files[i] {
				t.Errorf("%s migrations not sorted: %v", set.dir, files)
			}
		}
	}

	files, _ := clickhouseSet.files()
	for _, f := range files {
		sql, err := clickhouseSet.read(f)
		if err != nil {
			t.Fatal(err)
		}
		if err := validateNoSemicolonInStrings(sql); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}
