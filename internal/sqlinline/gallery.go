package sqlinline

const QInsertGalleryEntry = `--sql d07a4c92-1b6e-4f58-a3d9-8c25e7b09f41
insert into gallery_entries (id, created_at, user_id, parse_type, custom_prompt, image_url, original_image_id)
values (gen_random_uuid(), now(), $1::text, $2::text, $3::text, $4::text, $5::text);
`
