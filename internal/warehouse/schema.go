package warehouse

// TableSpec describes one destination relation. The column schema is fixed
// per sub-table, never inferred per file, and every column is TEXT: the
// Receita layout publishes everything as unquoted strings and typing is left
// to downstream views.
type TableSpec struct {
	Name        string
	Columns     []string
	FileSuffix  string
	Description string

	// PathSegment scopes artifact selection to one path segment under the
	// period prefix. The PGFN layout needs it because every data type shares
	// the .csv suffix.
	PathSegment string

	// HeaderRows is the number of leading rows to discard per artifact.
	HeaderRows int
}

// EstabelecimentosColumns follows the official Receita Federal layout for
// the *.ESTABELE files. The ano_mes period column is appended at load time.
var EstabelecimentosColumns = []string{
	"cnpj_basico",
	"cnpj_ordem",
	"cnpj_dv",
	"identificador_matriz_filial",
	"nome_fantasia",
	"situacao_cadastral",
	"data_situacao_cadastral",
	"motivo_situacao_cadastral",
	"nome_cidade_exterior",
	"pais",
	"data_inicio_atividade",
	"cnae_fiscal_principal",
	"cnae_fiscal_secundaria",
	"tipo_logradouro",
	"logradouro",
	"numero",
	"complemento",
	"bairro",
	"cep",
	"uf",
	"municipio",
	"ddd_1",
	"telefone_1",
	"ddd_2",
	"telefone_2",
	"ddd_fax",
	"fax",
	"correio_eletronico",
	"situacao_especial",
	"data_situacao_especial",
}

// EmpresasColumns follows the layout of the *.EMPRECSV files.
var EmpresasColumns = []string{
	"cnpj_basico",
	"razao_social",
	"natureza_juridica",
	"qualificacao_responsavel",
	"capital_social",
	"porte_empresa",
	"ente_federativo_responsavel",
}

// FazendaColumns follows the PGFN open-data layout shared by all three
// quarterly archives. Files carry a header row.
var FazendaColumns = []string{
	"cpf_cnpj",
	"tipo_pessoa",
	"tipo_devedor",
	"nome_devedor",
	"uf_devedor",
	"unidade_responsavel",
	"numero_inscricao",
	"tipo_situacao_inscricao",
	"situacao_inscricao",
	"receita_principal",
	"data_inscricao",
	"indicador_ajuizado",
	"valor_consolidado",
}

// FazendaDataTypes returns the PGFN sub-tables keyed by the trigger payload's
// data_type values, which match the per-type storage segments.
func FazendaDataTypes(tableNaoPrevidenciario, tableFGTS, tablePrevidenciario string) map[string]TableSpec {
	return map[string]TableSpec{
		"Nao_Previdenciario": {
			Name:        tableNaoPrevidenciario,
			Columns:     FazendaColumns,
			FileSuffix:  ".CSV",
			Description: "PGFN nao previdenciario",
			PathSegment: "Nao_Previdenciario",
			HeaderRows:  1,
		},
		"FGTS": {
			Name:        tableFGTS,
			Columns:     FazendaColumns,
			FileSuffix:  ".CSV",
			Description: "PGFN FGTS",
			PathSegment: "FGTS",
			HeaderRows:  1,
		},
		"Previdenciario": {
			Name:        tablePrevidenciario,
			Columns:     FazendaColumns,
			FileSuffix:  ".CSV",
			Description: "PGFN previdenciario",
			PathSegment: "Previdenciario",
			HeaderRows:  1,
		},
	}
}

// DataTypes returns the known sub-tables keyed by the trigger payload's
// data_type values.
func DataTypes(tableEstabelecimentos, tableEmpresas string) map[string]TableSpec {
	return map[string]TableSpec{
		"estabelecimentos": {
			Name:        tableEstabelecimentos,
			Columns:     EstabelecimentosColumns,
			FileSuffix:  ".ESTABELE",
			Description: "Estabelecimentos",
		},
		"empresas": {
			Name:        tableEmpresas,
			Columns:     EmpresasColumns,
			FileSuffix:  ".EMPRECSV",
			Description: "Empresas",
		},
	}
}
