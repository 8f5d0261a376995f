package sqlinline

const QInsertUserIfAbsent = `--sql 3f2b8c1a-9d44-4e6b-b0c2-5a7e91d83f60
insert into users (user_id, created_at, is_premium, premium_expires_at)
values ($1::text, now(), false, null)
on conflict (user_id) do nothing;
`

const QSelectUserByID = `--sql 7c415d9e-2a8f-4b31-9e57-d06c3b24a881
select user_id, created_at, is_premium, premium_expires_at
from users
where user_id = $1::text
limit 1;
`

const QSetUserPremium = `--sql b8a90f34-6c1d-4275-8de3-42f5c7a9e016
update users
set is_premium = true,
    premium_expires_at = $2::timestamptz
where user_id = $1::text;
`

const QCancelUserPremium = `--sql e51d7b02-3fa8-49c6-a1b4-98c20d6f5e73
update users
set is_premium = false,
    premium_expires_at = null
where user_id = $1::text;
`
