package metadata

// SchemaDDL pdf_metadata 表结构；s3_url 在未配置对象存储时为 NULL
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS pdf_metadata (
    id          BIGSERIAL PRIMARY KEY,
    filename    TEXT        NOT NULL,
    filesize    INTEGER     NOT NULL,
    filecontent TEXT        NOT NULL,
    uploaddate  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    s3_url      TEXT
);
CREATE INDEX IF NOT EXISTS idx_pdf_metadata_s3_url ON pdf_metadata (s3_url);
`
